package tracker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes pipeline counters on a dedicated registry so the
// /metrics endpoint only carries application series.
type Metrics struct {
	registry *prometheus.Registry

	RefreshCycles   *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	HistorySkips    prometheus.Counter
	TrackedFlights  prometheus.Gauge
}

// NewMetrics creates and registers the pipeline metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RefreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corridorwatch",
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles by result (success, failure).",
		}, []string{"result"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "corridorwatch",
			Name:      "refresh_duration_seconds",
			Help:      "Wall-clock duration of a full refresh cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		HistorySkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corridorwatch",
			Name:      "history_lookups_skipped_total",
			Help:      "Aircraft skipped in a cycle because their history lookup failed.",
		}),
		TrackedFlights: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "corridorwatch",
			Name:      "tracked_flights",
			Help:      "Matched aircraft in the latest published snapshot.",
		}),
	}

	registry.MustRegister(
		m.RefreshCycles,
		m.RefreshDuration,
		m.HistorySkips,
		m.TrackedFlights,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
