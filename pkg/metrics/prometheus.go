// Package metrics provides Prometheus metrics for the capmap alert service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Geocoder request outcomes used as the "outcome" label.
const (
	OutcomeResolved    = "resolved"
	OutcomeSkipped     = "skipped"
	OutcomeNoResults   = "no_results"
	OutcomeBadStatus   = "bad_status"
	OutcomeRateLimited = "rate_limited"
	OutcomeMalformed   = "malformed"
	OutcomeTransport   = "transport"
	OutcomePacing      = "pacing"
)

// latencyBuckets are milliseconds; geocoder calls are bounded at a few seconds.
var latencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// Manager manages all Prometheus metrics for the capmap service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline
	alertsIngested        prometheus.Counter
	alertsStored          prometheus.Gauge
	enrichLatency         prometheus.Histogram
	safePlacesExtracted   prometheus.Counter
	safePlacesResolved    prometheus.Counter
	geocoderRequests      *prometheus.CounterVec
	geocoderLatency       prometheus.Histogram
	dangerZonesUnresolved prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level helpers

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // served by /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init replaces the package-level metrics with ones built from opts on a fresh
// registry. Call it once at startup, before anything records or serves metrics.
func Init(opts ...Option) error {
	var check Manager
	for _, opt := range opts {
		opt(&check)
	}
	for i := 1; i < len(check.histogramBuckets); i++ {
		if check.histogramBuckets[i] <= check.histogramBuckets[i-1] {
			return fmt.Errorf("%w: %v", ErrInvalidBuckets, check.histogramBuckets)
		}
	}

	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
	return nil
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "capmap",
		subsystem:        "alerts",
		histogramBuckets: latencyBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	m.alertsIngested = m.counter("ingested_total", "Total number of alerts enriched and stored")
	m.alertsStored = m.gauge("stored", "Current number of alerts held in memory")
	m.enrichLatency = m.histogram("enrich_latency_milliseconds", "Time spent enriching one alert, including geocoding")
	m.safePlacesExtracted = m.counter("safe_places_extracted_total", "Safe-zone mentions found in alert descriptions")
	m.safePlacesResolved = m.counter("safe_places_resolved_total", "Safe-zone mentions that geocoded and were recorded")
	m.dangerZonesUnresolved = m.counter("danger_zones_unresolved_total", "Alerts stored without a danger coordinate")
	m.geocoderRequests = m.counterVec("geocoder_requests_total", "Geocoder lookups by outcome", "outcome")
	m.geocoderLatency = m.histogram("geocoder_latency_milliseconds", "Latency of outbound geocoder calls")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = m.gauge("queue_size", "Current number of alerts waiting for enrichment")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of alerts the queue accepts")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Alerts rejected by the queue")

	m.workerCount = m.gauge("worker_count", "Number of enrichment workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time a worker spends on one job")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause")
}

// Pipeline metrics.

// RecordAlertIngested counts one stored alert and updates the stored gauge.
func RecordAlertIngested(total int) {
	globalManager.alertsIngested.Inc()
	globalManager.alertsStored.Set(float64(total))
}

// RecordEnrichLatency records the time spent enriching one alert.
func RecordEnrichLatency(latencyMs float64) {
	globalManager.enrichLatency.Observe(latencyMs)
}

// RecordSafePlaceExtracted counts a safe-zone mention found in a description.
func RecordSafePlaceExtracted() {
	globalManager.safePlacesExtracted.Inc()
}

// RecordSafePlaceResolved counts a safe place that was geocoded and kept.
func RecordSafePlaceResolved() {
	globalManager.safePlacesResolved.Inc()
}

// RecordDangerZoneUnresolved counts an alert stored without danger coordinates.
func RecordDangerZoneUnresolved() {
	globalManager.dangerZonesUnresolved.Inc()
}

// RecordGeocoderRequest counts one lookup by outcome (see Outcome* constants).
func RecordGeocoderRequest(outcome string) {
	globalManager.geocoderRequests.WithLabelValues(outcome).Inc()
}

// RecordGeocoderLatency records the latency of one outbound geocoder call.
func RecordGeocoderLatency(latencyMs float64) {
	globalManager.geocoderLatency.Observe(latencyMs)
}

// HTTP metrics.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue metrics.

func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker metrics.

func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// Error metrics.

func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry served on /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
