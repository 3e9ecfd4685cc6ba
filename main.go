package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/lunfardo314/notary/node"
)

func main() {
	node.InitConfig()

	killChan := make(chan os.Signal, 1)
	signal.Notify(killChan, syscall.SIGINT, syscall.SIGTERM)

	n := node.New()
	go func() {
		<-killChan
		n.Stop()
	}()

	if err := n.Start(); err != nil {
		os.Exit(1)
	}
	n.WaitStop()
}
