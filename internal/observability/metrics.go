// Package observability holds the logger setup and Prometheus collectors.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ulasan"

// Page renders and uploads are short; the top bucket covers a slow S3 write.
var latencyBuckets = prometheus.ExponentialBuckets(0.005, 2, 11)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Requests served, by matched route and response status.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Time spent serving a request, by matched route.",
		Buckets:   latencyBuckets,
	}, []string{"route", "method"})

	// result is one of ok, invalid, forbidden, not_found, error.
	reviewOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "review_operations_total",
		Help:      "Review writes by operation (create, update, delete) and result.",
	}, []string{"operation", "result"})

	// result is one of ok, invalid, error.
	loginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Login form submissions by result.",
	}, []string{"result"})
)

// InitRegistry returns a registry with the site collectors plus the Go
// runtime and process collectors.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		httpRequests,
		httpDuration,
		reviewOperations,
		loginAttempts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// MetricsHandler serves reg in the Prometheus exposition format. A failing
// collector does not hide the others.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry:      reg,
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// ObserveHTTP records one served request.
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveReview records the result of a review write.
func ObserveReview(operation, result string) {
	reviewOperations.WithLabelValues(operation, result).Inc()
}

// ObserveLogin records the result of a login attempt.
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}
