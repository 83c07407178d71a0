package export

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Exports        *prometheus.CounterVec
	RenderDuration prometheus.Histogram
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			Exports: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "pixora_exports_total",
				Help: "Export requests by format and outcome",
			}, []string{"format", "result"}),
			RenderDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "pixora_export_render_seconds",
				Help:    "Time spent rasterising a document for export",
				Buckets: prometheus.DefBuckets,
			}),
		}
	})
	return metricsInstance
}

func (m *Metrics) record(format Format, result string) {
	if m == nil || m.Exports == nil {
		return
	}
	m.Exports.WithLabelValues(string(format), result).Inc()
}

func (m *Metrics) observeRender(seconds float64) {
	if m == nil || m.RenderDuration == nil {
		return
	}
	m.RenderDuration.Observe(seconds)
}
