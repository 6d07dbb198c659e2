// Package metrics holds the Prometheus collectors shared across the engine.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Rate table snapshot cache lookups by backend and result (hit, miss, error).
	SnapshotCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratebook",
		Name:      "snapshot_cache_requests_total",
		Help:      "Rate table snapshot cache lookups",
	}, []string{"backend", "result"})

	SnapshotCacheInvalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratebook",
		Name:      "snapshot_cache_invalidations_total",
		Help:      "Rate table snapshot cache invalidations",
	}, []string{"backend"})

	RatingRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratebook",
		Name:      "rating_runs_total",
		Help:      "Rating runs by product type and final status",
	}, []string{"product_type", "status"})

	RatingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ratebook",
		Name:      "rating_duration_seconds",
		Help:      "Wall time of one rating run",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"product_type"})

	AuditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ratebook",
		Name:      "audit_write_failures_total",
		Help:      "Rating runs that could not be appended to the audit store",
	})

	RateTableImports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratebook",
		Name:      "rate_table_imports_total",
		Help:      "Rate table document imports by source and outcome",
	}, []string{"source", "outcome"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		SnapshotCacheRequests,
		SnapshotCacheInvalidations,
		RatingRuns,
		RatingDuration,
		AuditWriteFailures,
		RateTableImports,
	}
}

// Register adds the engine collectors to reg. Collectors that are already
// registered are left in place.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
