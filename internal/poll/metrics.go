package poll

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts poll activity per resource key.
type Metrics struct {
	Ticks    *prometheus.CounterVec
	Skips    *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the poll metrics on reg (the default registerer
// when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "farmwatch_poll_ticks_total",
			Help: "Poll ticks fired per resource key.",
		}, []string{"key"}),
		Skips: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "farmwatch_poll_skipped_total",
			Help: "Poll ticks skipped because the previous fetch was still in flight.",
		}, []string{"key"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "farmwatch_poll_errors_total",
			Help: "Failed fetches per resource key.",
		}, []string{"key"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "farmwatch_poll_fetch_seconds",
			Help:    "Fetch duration per resource key.",
			Buckets: prometheus.DefBuckets,
		}, []string{"key"}),
	}
}
