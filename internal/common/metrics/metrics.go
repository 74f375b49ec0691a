// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_queries_completed_total",
			Help: "Total number of queries completed per resource",
		},
		[]string{"resource"},
	)

	QueriesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_queries_failed_total",
			Help: "Total number of queries failed per resource",
		},
		[]string{"resource", "error_code"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "archive_query_duration_seconds",
			Help: "Duration of query processing in seconds",
		},
		[]string{"resource"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_query_cache_hits_total",
			Help: "Number of queries served from the response cache",
		},
		[]string{"resource"},
	)
)
