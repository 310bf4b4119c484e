package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mro_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mro_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Inventory
	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mro_operation_reservations_total",
			Help: "Operations created or re-reserved, by resulting status",
		},
		[]string{"status"}, // pending, suspended
	)

	StockAdjustmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mro_stock_adjustments_total",
			Help: "Raw material quantity adjustments, by reason",
		},
		[]string{"reason"}, // reserve, release, consume, procure, procure_reverse
	)

	// Blob store
	BlobOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mro_blob_operations_total",
			Help: "Blob store calls, by operation and result",
		},
		[]string{"operation", "result"},
	)

	// Auth
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mro_login_attempts_total",
			Help: "Login attempts, by result",
		},
		[]string{"result"}, // success, invalid, rate_limited
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordReservation counts an operation reservation by status.
func RecordReservation(status string) {
	ReservationsTotal.WithLabelValues(status).Inc()
}

// RecordStockAdjustment counts n per-material adjustments for reason.
func RecordStockAdjustment(reason string, n int) {
	if n <= 0 {
		return
	}
	StockAdjustmentsTotal.WithLabelValues(reason).Add(float64(n))
}

// ObserveBlob counts a blob store call.
func ObserveBlob(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	BlobOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordLogin counts a login attempt.
func RecordLogin(result string) {
	LoginAttemptsTotal.WithLabelValues(result).Inc()
}
