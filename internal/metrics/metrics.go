// Package metrics exposes Prometheus collectors for provider traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound page requests by endpoint and HTTP status ("error" when no response).
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaiko_api_requests_total",
			Help: "Total number of Kaiko API page requests (by endpoint and status).",
		},
		[]string{"endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kaiko_api_request_duration_seconds",
			Help:    "Duration of Kaiko API page requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms → ~40s
		},
		[]string{"endpoint"},
	)

	RecordsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaiko_records_fetched_total",
			Help: "Number of records received from the Kaiko API.",
		},
		[]string{"endpoint"},
	)

	EmptyResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kaiko_empty_results_total",
			Help: "Data requests that returned no records.",
		},
		[]string{"product"},
	)
)

// ObserveDuration records the time elapsed since start on a histogram or summary.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	}
}

func IncRequest(endpoint, status string) {
	RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

func AddRecords(endpoint string, n int) {
	RecordsFetched.WithLabelValues(endpoint).Add(float64(n))
}

func IncEmptyResult(product string) {
	EmptyResults.WithLabelValues(product).Inc()
}
