package workflow

import (
	"time"

	"github.com/lunfardo314/notary/partition"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	results      *prometheus.CounterVec
	batchSize    prometheus.Histogram
	batchLatency prometheus.Histogram
	queueSize    prometheus.Gauge
}

func (w *Workflow) registerMetrics() {
	w.metrics.results = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notary_workflow_results",
		Help: "uniqueness check results by notary and kind",
	}, []string{"notary", "kind"})
	w.metrics.batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "notary_workflow_batchSize",
		Help:    "number of requests in the inbound batch",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
	w.metrics.batchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "notary_workflow_batchLatency",
		Help:    "inbound batch processing time in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
	})
	w.metrics.queueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "notary_workflow_queueSize",
		Help: "number of submissions waiting in the input queue",
	})
	w.MetricsRegistry().MustRegister(w.metrics.results, w.metrics.batchSize, w.metrics.batchLatency, w.metrics.queueSize)
}

func (w *Workflow) updateMetrics(results []partition.Result, elapsed time.Duration) {
	w.metrics.batchSize.Observe(float64(len(results)))
	w.metrics.batchLatency.Observe(elapsed.Seconds())
	for i := range results {
		w.metrics.results.WithLabelValues(results[i].Notary, results[i].Result.Kind.String()).Inc()
	}
}
