// Package metrics provides the centralized Prometheus metrics registry
// for the harvester. All metrics are defined in their respective packages
// (fetcher, harvest) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the harvester.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Fetch Metrics (pkg/fetcher):
//   - harvest_fetch_requests_total{outcome} (Counter): fetch attempts by
//     outcome (success, transient, fatal)
//   - harvest_fetch_duration_seconds (Histogram): per-attempt duration
//   - harvest_fetch_retries_total (Counter): retry attempts
//   - harvest_fetch_retry_exhausted_total (Counter): chunks that ran out
//     of retry budget
//
// Harvest Metrics (pkg/harvest):
//   - harvest_chunks_total{outcome} (Counter): chunks consumed by outcome
//   - harvest_records_total (Counter): records committed to output
//
// Example Prometheus Queries:
//
//   # Transient failure rate
//   rate(harvest_fetch_requests_total{outcome="transient"}[5m]) /
//   rate(harvest_fetch_requests_total[5m])
//
//   # P95 fetch latency
//   histogram_quantile(0.95, rate(harvest_fetch_duration_seconds_bucket[5m]))
//
//   # Throughput
//   rate(harvest_records_total[5m])
