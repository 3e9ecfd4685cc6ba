package node

import (
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/spf13/viper"
)

func (p *NotaryNode) startPProfIfEnabled() {
	if !viper.GetBool("pprof.enable") {
		return
	}
	port := viper.GetInt("pprof.port")
	if port == 0 {
		port = 8080
	}
	url := fmt.Sprintf("localhost:%d", port)
	p.Log().Infof("starting pprof on '%s'", url)

	go func() {
		if err := http.ListenAndServe(url, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.Log().Errorf("pprof: %v", err)
		}
	}()
}
