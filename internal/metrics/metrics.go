// Package metrics provides Prometheus metrics for the happyphone server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "happyphone_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "happyphone_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Terminal metrics
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "happyphone_commands_total",
			Help: "Total interpreted sub-commands",
		},
		[]string{"command", "result"},
	)

	chainsHaltedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "happyphone_chains_halted_total",
			Help: "Command chains stopped by a failing sub-command",
		},
	)

	// Package metrics
	packageInstallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "happyphone_package_installs_total",
			Help: "Completed package installations",
		},
		[]string{"package"},
	)

	packageRemovalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "happyphone_package_removals_total",
			Help: "Removed packages",
		},
		[]string{"package"},
	)

	activeDownloads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "happyphone_active_downloads",
			Help: "Number of in-flight simulated downloads",
		},
	)

	// Storage metrics
	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "happyphone_storage_operation_duration_seconds",
			Help:    "Blob store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "happyphone_storage_operations_total",
			Help: "Total blob store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	// Auth metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "happyphone_auth_attempts_total",
			Help: "Total authentication attempts",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCommand records one dispatched sub-command.
func RecordCommand(command string, success bool) {
	commandsTotal.WithLabelValues(command, result(success, "ok", "failed")).Inc()
}

func RecordChainHalted() {
	chainsHaltedTotal.Inc()
}

func RecordPackageInstall(pkg string) {
	packageInstallsTotal.WithLabelValues(pkg).Inc()
}

func RecordPackageRemoval(pkg string) {
	packageRemovalsTotal.WithLabelValues(pkg).Inc()
}

// SetActiveDownloads sets the number of in-flight downloads.
func SetActiveDownloads(count int) {
	activeDownloads.Set(float64(count))
}

// RecordStorageOperation records a blob store operation.
func RecordStorageOperation(backend, operation string, duration time.Duration, success bool) {
	storageOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	storageOperationsTotal.WithLabelValues(backend, operation, result(success, "success", "error")).Inc()
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(success bool) {
	authAttemptsTotal.WithLabelValues(result(success, "success", "failure")).Inc()
}

func result(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}
