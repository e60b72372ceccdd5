// Package monitoring provides metrics and observability for the tweet filter client
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Filter operation metrics
	filterOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tweet_filter_operations_total",
			Help: "Total number of filter operations by transport and outcome",
		},
		[]string{"transport", "outcome"},
	)

	filterOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tweet_filter_operation_duration_seconds",
			Help:    "Duration of filter operations from submission to terminal state",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"transport", "outcome"},
	)

	filterItemsCount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tweet_filter_result_items",
			Help:    "Number of items in final result sets",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"verdict"},
	)

	activeOperations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tweet_filter_active_operations",
			Help: "Number of filter operations currently being monitored",
		},
	)

	// Poll transport metrics
	pollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tweet_filter_poll_cycles_total",
			Help: "Total number of job status polls by reported status",
		},
		[]string{"status"},
	)

	pollRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tweet_filter_poll_retries_total",
			Help: "Total number of retry escalations after network failures",
		},
	)

	// Push transport metrics
	pushMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tweet_filter_push_messages_total",
			Help: "Total number of channel messages received by type",
		},
		[]string{"type"},
	)

	// Upstream API metrics
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tweet_filter_upstream_requests_total",
			Help: "Total number of requests to the remote tweet service",
		},
		[]string{"endpoint", "status"},
	)

	upstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tweet_filter_upstream_request_duration_seconds",
			Help:    "Duration of requests to the remote tweet service",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)

	// Cache metrics
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tweet_filter_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"operation"},
	)

	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tweet_filter_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"operation"},
	)

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tweet_filter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tweet_filter_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)
)

// RecordFilterOutcome records the terminal outcome of a filter operation
func RecordFilterOutcome(transport, outcome string, duration float64) {
	filterOperationsTotal.WithLabelValues(transport, outcome).Inc()
	filterOperationDuration.WithLabelValues(transport, outcome).Observe(duration)
}

// RecordResultItems records the size of a final result set
func RecordResultItems(passed, rejected int) {
	filterItemsCount.WithLabelValues("pass").Observe(float64(passed))
	filterItemsCount.WithLabelValues("reject").Observe(float64(rejected))
}

// UpdateActiveOperations adjusts the active operations gauge
func UpdateActiveOperations(delta int) {
	activeOperations.Add(float64(delta))
}

// RecordPollCycle records one job status poll
func RecordPollCycle(status string) {
	pollCyclesTotal.WithLabelValues(status).Inc()
}

// RecordPollRetry records one retry escalation
func RecordPollRetry() {
	pollRetriesTotal.Inc()
}

// RecordPushMessage records one inbound channel message
func RecordPushMessage(msgType string) {
	pushMessagesTotal.WithLabelValues(msgType).Inc()
}

// RecordUpstreamRequest records metrics for a call to the remote service
func RecordUpstreamRequest(endpoint, status string, duration float64) {
	upstreamRequestsTotal.WithLabelValues(endpoint, status).Inc()
	upstreamRequestDuration.WithLabelValues(endpoint, status).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit(operation string) {
	cacheHits.WithLabelValues(operation).Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(operation string) {
	cacheMisses.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration)
}
