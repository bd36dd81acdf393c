package store

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once
	dedupHits   *prometheus.CounterVec
)

// initMetrics registers the store counters once per process; multiple
// stores (tests) share the same registry.
func initMetrics() {
	metricsOnce.Do(func() {
		dedupHits = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "errortracker",
				Name:      "dedup_hits_total",
				Help:      "Reports that matched an existing unresolved group.",
			},
			[]string{"category"},
		)
		prometheus.MustRegister(dedupHits)
	})
}

func countDedupHit(category string) {
	if dedupHits != nil {
		dedupHits.WithLabelValues(category).Inc()
	}
}
