// Package metrics provides the centralized Prometheus metrics registry for
// the fetcher. All metrics are defined in their respective packages (gh,
// quota, cache, sink) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the fetcher.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Quota Metrics (pkg/quota):
//   - ghfetch_quota_remaining (Gauge): Last server-reported remaining request quota
//   - ghfetch_quota_waits_total (Counter): Times the gate blocked until quota reset
//   - ghfetch_quota_wait_seconds (Histogram): Duration of quota waits
//
// Request Metrics (pkg/gh):
//   - ghfetch_requests_total{operation, status} (Counter): GraphQL requests by operation and status
//   - ghfetch_request_duration_seconds{operation} (Histogram): Request duration by operation
//   - ghfetch_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, graphql)
//
// Retry Metrics (pkg/gh):
//   - ghfetch_retries_total{error_class} (Counter): Retry attempts by error class
//   - ghfetch_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - ghfetch_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - ghfetch_cache_hits_total (Counter): Response cache hits
//   - ghfetch_cache_misses_total (Counter): Response cache misses
//   - ghfetch_cache_errors_total{operation} (Counter): Cache operation errors
//
// Sink Metrics (pkg/sink):
//   - ghfetch_sink_rows_total (Counter): Rows offered to the output sink
//   - ghfetch_sink_flushes_total{trigger} (Counter): Checkpoint flushes by trigger (interval, manual, final)
//   - ghfetch_sink_flush_errors_total (Counter): Failed checkpoint flushes
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(ghfetch_cache_hits_total[5m])) /
//   (sum(rate(ghfetch_cache_hits_total[5m])) + sum(rate(ghfetch_cache_misses_total[5m])))
//
//   # Quota Headroom
//   ghfetch_quota_remaining < 500
//
//   # Request Error Rate
//   rate(ghfetch_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(ghfetch_request_duration_seconds_bucket[5m]))
//
//   # Records Collected Per Minute
//   rate(ghfetch_sink_rows_total[1m]) * 60
