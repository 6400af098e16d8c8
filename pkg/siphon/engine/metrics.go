package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the engine's Prometheus collectors, registered on an
// Engine-owned registry rather than the global default one so multiple
// engines (e.g. in tests) never collide on collector names.
type Metrics struct {
	ExchangesTotal    *prometheus.CounterVec
	ExchangeDuration  prometheus.Histogram
	TunnelsTotal      prometheus.Counter
	RewriteMatches    prometheus.Counter
	BodyTruncations   prometheus.Counter
	UpstreamConnErr   prometheus.Counter
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		ExchangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "siphon",
			Name:      "exchanges_total",
			Help:      "HTTP exchanges processed, labeled by outcome.",
		}, []string{"outcome"}),
		ExchangeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "siphon",
			Name:      "exchange_duration_seconds",
			Help:      "Time from a fully decoded request to its response fully written.",
			Buckets:   prometheus.DefBuckets,
		}),
		TunnelsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "siphon",
			Name:      "tunnels_total",
			Help:      "CONNECT tunnels opened.",
		}),
		RewriteMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "siphon",
			Name:      "rewrite_matches_total",
			Help:      "Requests or responses matched by an enabled rewrite rule.",
		}),
		BodyTruncations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "siphon",
			Name:      "body_truncations_total",
			Help:      "Bodies truncated at the configured maximum length.",
		}),
		UpstreamConnErr: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "siphon",
			Name:      "upstream_connect_errors_total",
			Help:      "Failed upstream connection attempts.",
		}),
	}
	reg.MustRegister(
		m.ExchangesTotal,
		m.ExchangeDuration,
		m.TunnelsTotal,
		m.RewriteMatches,
		m.BodyTruncations,
		m.UpstreamConnErr,
	)
	return m
}
