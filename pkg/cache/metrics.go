package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks response cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghfetch_cache_hits_total",
			Help: "Total number of GraphQL response cache hits",
		},
	)

	// CacheMisses tracks response cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghfetch_cache_misses_total",
			Help: "Total number of GraphQL response cache misses",
		},
	)

	// CacheErrors tracks cache operation errors by operation.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghfetch_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
