// Package metrics holds the Prometheus collectors exported by Othala.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "othala"

var (
	// StoreLatency records record store latency per backend and operation.
	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_operation_duration_seconds",
		Help:      "Record store operation latency.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"backend", "op"})

	// Operations counts lifecycle operations per kind, operation, and outcome.
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_operations_total",
		Help:      "Record lifecycle operations by kind, operation and outcome.",
	}, []string{"kind", "op", "outcome"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entry_cache_hits_total",
		Help:      "Entry cache hits.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entry_cache_misses_total",
		Help:      "Entry cache misses.",
	})

	// LinksPruned counts dangling links removed by reconciliation.
	LinksPruned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "links_pruned_total",
		Help:      "Dangling links removed by reconciliation.",
	})
)

// ObserveStore records the time elapsed since start for a store operation.
func ObserveStore(backend, op string, start time.Time) {
	StoreLatency.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

// CountOperation increments Operations with an outcome derived from err.
func CountOperation(kind, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Operations.WithLabelValues(kind, op, outcome).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
