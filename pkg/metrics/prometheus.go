// Package metrics provides Prometheus metrics for the Rt estimation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every metric the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Ingestion
	recordsIngested      prometheus.Gauge
	malformedDates       *prometheus.CounterVec
	recoveredWithoutDate prometheus.Gauge
	ingestDuration       prometheus.Histogram
	ingestErrors         *prometheus.CounterVec

	// Snapshots
	snapshotBuildDuration  prometheus.Histogram
	snapshotLastUnix       prometheus.Gauge
	snapshotCount          prometheus.Counter
	snapshotLastDurationMs prometheus.Gauge
	snapshotRegions        prometheus.Gauge
	snapshotAgeSeconds     prometheus.Gauge

	// Evaluations
	evaluations        *prometheus.CounterVec
	evaluationLatency  prometheus.Histogram
	recoveryFallbacks  prometheus.Counter
	undefinedRtPoints  prometheus.Counter
	evaluationAxisDays prometheus.Histogram

	// Reloads
	reloadRequests   *prometheus.CounterVec
	reloadQueueSize  prometheus.Gauge
	reloadsProcessed *prometheus.CounterVec
	reloadLatency    prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry the
// default registerer is used.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rtmonitor",
		subsystem:        "estimator",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(n, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(n), Help: help, ConstLabels: m.customLabels}
}

func (m *Manager) gauge(n, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(n), Help: help, ConstLabels: m.customLabels}
}

func (m *Manager) histogram(n, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(n), Help: help, Buckets: buckets, ConstLabels: m.customLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.recordsIngested = auto.NewGauge(m.gauge("records_ingested", "Number of case records in the current snapshot"))
	m.malformedDates = auto.NewCounterVec(m.counter("malformed_dates_total", "Date values that could not be parsed, by field"), []string{"field"})
	m.recoveredWithoutDate = auto.NewGauge(m.gauge("recovered_without_date", "Recovered records lacking a recovery date in the current snapshot"))
	m.ingestDuration = auto.NewHistogram(m.histogram("ingest_duration_milliseconds", "Fetch plus normalization time in milliseconds",
		[]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000}))
	m.ingestErrors = auto.NewCounterVec(m.counter("ingest_errors_total", "Failed ingestion attempts by source"), []string{"source"})

	m.snapshotBuildDuration = auto.NewHistogram(m.histogram("snapshot_build_duration_milliseconds", "Snapshot build duration in milliseconds", m.histogramBuckets))
	m.snapshotLastUnix = auto.NewGauge(m.gauge("snapshot_last_unix", "Unix timestamp of the last snapshot publish"))
	m.snapshotCount = auto.NewCounter(m.counter("snapshot_count_total", "Snapshots published"))
	m.snapshotLastDurationMs = auto.NewGauge(m.gauge("snapshot_last_duration_milliseconds", "Last snapshot build duration in milliseconds"))
	m.snapshotRegions = auto.NewGauge(m.gauge("snapshot_regions", "Distinct regions in the current snapshot"))
	m.snapshotAgeSeconds = auto.NewGauge(m.gauge("snapshot_age_seconds", "Seconds since the current snapshot was loaded"))

	m.evaluations = auto.NewCounterVec(m.counter("evaluations_total", "Rt evaluations by outcome status"), []string{"status"})
	m.evaluationLatency = auto.NewHistogram(m.histogram("evaluation_latency_milliseconds", "Rt evaluation latency in milliseconds", m.histogramBuckets))
	m.recoveryFallbacks = auto.NewCounter(m.counter("recovery_fallbacks_total", "Evaluations that used global recovery statistics"))
	m.undefinedRtPoints = auto.NewCounter(m.counter("undefined_rt_points_total", "Rt points left undefined by a non-positive active count"))
	m.evaluationAxisDays = auto.NewHistogram(m.histogram("evaluation_axis_days", "Length of the daily axis per evaluation",
		[]float64{1, 7, 14, 30, 60, 90, 180, 365, 730}))

	m.reloadRequests = auto.NewCounterVec(m.counter("reload_requests_total", "Reload requests by trigger and outcome"), []string{"trigger", "outcome"})
	m.reloadQueueSize = auto.NewGauge(m.gauge("reload_queue_size", "Pending reload requests"))
	m.reloadsProcessed = auto.NewCounterVec(m.counter("reloads_processed_total", "Reloads run by the worker, by status"), []string{"status"})
	m.reloadLatency = auto.NewHistogram(m.histogram("reload_latency_milliseconds", "Time from reload request to published snapshot in milliseconds",
		[]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000}))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counter("errors_by_component_total", "Errors by component"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counter("errors_by_type_total", "Errors by type"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counter("errors_by_endpoint_total", "Errors by endpoint"), []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogram("error_latency_milliseconds", "Latency of operations that resulted in errors", m.histogramBuckets),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogram("system_gc_pause_time_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Ingestion.

// UpdateRecordsIngested sets the record count of the current snapshot.
func UpdateRecordsIngested(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.recordsIngested.Set(float64(n))
}

// RecordMalformedDates adds n unparseable values for a date field.
func RecordMalformedDates(field string, n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.malformedDates.WithLabelValues(field).Add(float64(n))
}

// UpdateRecoveredWithoutDate sets the recovered-without-date count.
func UpdateRecoveredWithoutDate(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.recoveredWithoutDate.Set(float64(n))
}

// RecordIngestDuration records one ingestion in milliseconds.
func RecordIngestDuration(ms float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.ingestDuration.Observe(ms)
}

// RecordIngestError counts a failed ingestion for source.
func RecordIngestError(source string) {
	if !globalManager.enabled {
		return
	}
	globalManager.ingestErrors.WithLabelValues(source).Inc()
}

// Snapshots.

// RecordSnapshotPublished records a snapshot publish with its build time.
func RecordSnapshotPublished(buildMs float64, at time.Time, regions int) {
	if !globalManager.enabled {
		return
	}
	globalManager.snapshotBuildDuration.Observe(buildMs)
	globalManager.snapshotLastDurationMs.Set(buildMs)
	globalManager.snapshotLastUnix.Set(float64(at.Unix()))
	globalManager.snapshotCount.Inc()
	globalManager.snapshotRegions.Set(float64(regions))
}

// UpdateSnapshotAge sets the age of the current snapshot.
func UpdateSnapshotAge(age time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.snapshotAgeSeconds.Set(age.Seconds())
}

// Evaluations.

// RecordEvaluation records one evaluation outcome.
func RecordEvaluation(status string, latencyMs float64, axisDays int) {
	if !globalManager.enabled {
		return
	}
	globalManager.evaluations.WithLabelValues(status).Inc()
	globalManager.evaluationLatency.Observe(latencyMs)
	globalManager.evaluationAxisDays.Observe(float64(axisDays))
}

// RecordRecoveryFallback counts an evaluation that fell back to global recovery stats.
func RecordRecoveryFallback() {
	if !globalManager.enabled {
		return
	}
	globalManager.recoveryFallbacks.Inc()
}

// RecordUndefinedRtPoints adds n undefined Rt points.
func RecordUndefinedRtPoints(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.undefinedRtPoints.Add(float64(n))
}

// Reloads.

// RecordReloadRequest counts a reload request; outcome is "queued" or "coalesced".
func RecordReloadRequest(trigger, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.reloadRequests.WithLabelValues(trigger, outcome).Inc()
}

// UpdateReloadQueueSize sets the number of pending reloads.
func UpdateReloadQueueSize(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.reloadQueueSize.Set(float64(n))
}

// RecordReloadProcessed records a finished reload.
func RecordReloadProcessed(status string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.reloadsProcessed.WithLabelValues(status).Inc()
	globalManager.reloadLatency.Observe(latencyMs)
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System.

// UpdateSystemMemoryUsage sets the memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval is how often callers should refresh gauge metrics.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
