// Package observability holds the Prometheus metrics for the forecast
// pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics counts cache lookups per layer, upstream requests per
// provider, and refresh latency.
type Metrics struct {
	CacheLookups     *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec
	RefreshDuration  prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates and registers the metric set on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newMetrics(reg)
}

// NewMetricsForTesting creates the metric set without the runtime
// collectors, so tests can assert on counters in isolation.
func NewMetricsForTesting() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surfseer",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by layer (memory, store) and result (hit, miss).",
		}, []string{"layer", "result"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surfseer",
			Name:      "upstream_requests_total",
			Help:      "Upstream provider requests by provider and outcome (ok, error).",
		}, []string{"provider", "outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "surfseer",
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of a full report refresh, upstream fetches included.",
			Buckets:   prometheus.DefBuckets,
		}),
		registry: reg,
	}
	reg.MustRegister(m.CacheLookups, m.UpstreamRequests, m.RefreshDuration)
	return m
}

// Registry returns the backing registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCacheLookup records one lookup against a cache layer.
func (m *Metrics) ObserveCacheLookup(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(layer, result).Inc()
}

// ObserveUpstream records one provider request outcome.
func (m *Metrics) ObserveUpstream(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequests.WithLabelValues(provider, outcome).Inc()
}
