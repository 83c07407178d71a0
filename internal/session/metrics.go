package session

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ActiveSessions  prometheus.Gauge
	SavesTotal      *prometheus.CounterVec
	SaveDuration    prometheus.Histogram
	HydrationErrors prometheus.Counter
	FilterApplies   *prometheus.CounterVec
	Resizes         *prometheus.CounterVec
	ToolDenials     *prometheus.CounterVec
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "pixora_session_active",
				Help: "Current number of open canvas sessions",
			}),
			SavesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "pixora_session_saves_total",
				Help: "Canvas saves by trigger and result",
			}, []string{"trigger", "result"}),
			SaveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "pixora_session_save_duration_seconds",
				Help:    "Time spent persisting a canvas",
				Buckets: prometheus.DefBuckets,
			}),
			HydrationErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "pixora_session_hydration_errors_total",
				Help: "Documents that came up empty after a failed load",
			}),
			FilterApplies: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "pixora_session_filter_applies_total",
				Help: "Filter applications by result",
			}, []string{"result"}),
			Resizes: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "pixora_session_resizes_total",
				Help: "Canvas resizes by result",
			}, []string{"result"}),
			ToolDenials: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "pixora_session_tool_denials_total",
				Help: "Tool switches refused by the plan policy",
			}, []string{"tool"}),
		}
	})
	return metricsInstance
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) sessionOpened() {
	if m == nil || m.ActiveSessions == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil || m.ActiveSessions == nil {
		return
	}
	m.ActiveSessions.Dec()
}

func (m *Metrics) recordSave(trigger string, seconds float64, err error) {
	if m == nil || m.SavesTotal == nil {
		return
	}
	m.SavesTotal.WithLabelValues(trigger, result(err)).Inc()
	if m.SaveDuration != nil {
		m.SaveDuration.Observe(seconds)
	}
}

func (m *Metrics) recordHydrationError() {
	if m == nil || m.HydrationErrors == nil {
		return
	}
	m.HydrationErrors.Inc()
}

func (m *Metrics) recordFilterApply(err error) {
	if m == nil || m.FilterApplies == nil {
		return
	}
	m.FilterApplies.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) recordResize(err error) {
	if m == nil || m.Resizes == nil {
		return
	}
	m.Resizes.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) recordDenial(tool string) {
	if m == nil || m.ToolDenials == nil {
		return
	}
	m.ToolDenials.WithLabelValues(tool).Inc()
}
