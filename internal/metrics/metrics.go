package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal tracks the total number of API requests served
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "check_manager_requests_total",
			Help: "Total number of API requests served",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDurationSeconds tracks API request latency per route
	RequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "check_manager_request_duration_seconds",
			Help:    "API request latency per route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// BackendOperationsTotal tracks check backend operations by outcome
	BackendOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "check_manager_backend_operations_total",
			Help: "Total number of check backend operations by outcome",
		},
		[]string{"backend", "operation", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDurationSeconds,
		BackendOperationsTotal,
	)
}

// RecordRequest records a served API request
func RecordRequest(method, route string, status int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	RequestDurationSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordBackendOperation records a backend operation outcome
func RecordBackendOperation(backend, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	BackendOperationsTotal.WithLabelValues(backend, operation, outcome).Inc()
}
