package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lunfardo314/notary/global"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
)

const (
	Name               = "metrics"
	defaultMetricsPort = 14000
)

type (
	Environment interface {
		global.NodeGlobal
	}
)

// Start exposes registry of the environment on '/metrics'. The server stops with the global context
func Start(env Environment) {
	port := viper.GetInt("metrics.port")
	if port == 0 {
		env.Log().Warnf("metrics.port not specified. Will use %d for Prometheus metrics exposure", defaultMetricsPort)
		port = defaultMetricsPort
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           Handler(env),
		ReadHeaderTimeout: 5 * time.Second,
	}
	env.MarkWorkProcessStarted(Name)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.Log().Errorf("metrics server: %v", err)
		}
	}()
	go func() {
		<-env.Ctx().Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		env.MarkWorkProcessStopped(Name)
		env.Log().Infof("[%s] STOPPED", Name)
	}()
	env.Log().Infof("Prometheus metrics exposed on port %d", port)
}

// Handler registers runtime collectors and returns handler of the registry
func Handler(env global.Metrics) http.Handler {
	env.MetricsRegistry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		env.MetricsRegistry(),
		promhttp.HandlerOpts{
			Registry: env.MetricsRegistry(),
		},
	))
	return mux
}
