package node

import (
	"context"
	"time"

	"github.com/lunfardo314/notary/api/server"
)

func (p *NotaryNode) startAPIServer() error {
	p.apiServer = server.New(p)
	return p.apiServer.Start(apiPortFromConfig())
}

func (p *NotaryNode) stopAPIServer() {
	if p.apiServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.apiServer.Shutdown(ctx); err != nil {
		p.Log().Warnf("API server shutdown: %v", err)
		return
	}
	p.Log().Infof("API server has been stopped")
}
