package jsonapikit

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for request execution. All
// methods are nil-safe so a Client without metrics can call them freely.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	duplicateRejections *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec

	authNotifications *prometheus.CounterVec

	pagesFetched *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetricsCollector creates a collector on a fresh registry.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.NewRegistry())
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied registerer.
func NewMetricsCollectorWithRegistry(registerer prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registerer)
	mc := &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonapikit_requests_total",
				Help: "Total number of HTTP requests dispatched",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jsonapikit_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds, decoding included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jsonapikit_requests_in_flight",
				Help: "Number of admitted requests currently running",
			},
			[]string{"method", "endpoint"},
		),
		duplicateRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonapikit_duplicate_rejections_total",
				Help: "Total number of requests rejected because an identical one was in flight",
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonapikit_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"type", "method", "endpoint"},
		),
		authNotifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonapikit_auth_notifications_total",
				Help: "Total number of 401/403 notifications sent to the delegate",
			},
			[]string{"status"},
		),
		pagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsonapikit_pages_fetched_total",
				Help: "Total number of continuation pages fetched and appended",
			},
			[]string{"endpoint"},
		),
	}
	if reg, ok := registerer.(*prometheus.Registry); ok {
		mc.registry = reg
	}

	return mc
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordDuplicateRejection increments the duplicate rejection counter.
func (mc *MetricsCollector) RecordDuplicateRejection(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.duplicateRejections.WithLabelValues(method, endpoint).Inc()
}

// RecordError increments the error counter by type.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}

// RecordAuthNotification counts a delegate notification for a 401 or 403.
func (mc *MetricsCollector) RecordAuthNotification(statusCode int) {
	if mc == nil {
		return
	}

	mc.authNotifications.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordPageFetched counts an appended continuation page.
func (mc *MetricsCollector) RecordPageFetched(endpoint string) {
	if mc == nil {
		return
	}

	mc.pagesFetched.WithLabelValues(endpoint).Inc()
}

// GetRegistry exposes the underlying prometheus registry, or nil when the
// collector was built on a registerer that is not a *prometheus.Registry.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	if mc == nil {
		return nil
	}
	return mc.registry
}
