package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// propagation engine.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	appliedTotal     *prometheus.CounterVec
	sinkFailureTotal *prometheus.CounterVec
	importRowsTotal  *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	appliedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accommodations_applied_total",
		Help: "Deadline overrides written by the propagation engine",
	}, []string{"module_kind"})

	sinkFailureTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accommodations_sink_failures_total",
		Help: "Deadline override writes rejected by the platform sinks",
	}, []string{"module_kind"})

	importRowsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "accommodations_import_rows_total",
		Help: "CSV import rows processed, by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, appliedTotal, sinkFailureTotal, importRowsTotal, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		appliedTotal:     appliedTotal,
		sinkFailureTotal: sinkFailureTotal,
		importRowsTotal:  importRowsTotal,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one request's latency and outcome.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// IncApplied counts one successful deadline override write.
func (s *MetricsService) IncApplied(moduleKind string) {
	s.appliedTotal.WithLabelValues(moduleKind).Inc()
}

// IncSinkFailure counts one rejected deadline override write.
func (s *MetricsService) IncSinkFailure(moduleKind string) {
	s.sinkFailureTotal.WithLabelValues(moduleKind).Inc()
}

// IncImportRow counts one processed CSV row by outcome ("success" or "error").
func (s *MetricsService) IncImportRow(outcome string) {
	s.importRowsTotal.WithLabelValues(outcome).Inc()
}
