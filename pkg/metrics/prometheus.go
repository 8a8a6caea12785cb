// Package metrics provides Prometheus metrics for the gridcast projection service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
	subsystem              = "engine"
)

// DefaultLatencyBuckets are the histogram buckets, in milliseconds.
var DefaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // read-only defaults

// Manager manages all Prometheus metrics for the gridcast service.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Engine metrics
	recomputes         *prometheus.CounterVec
	snapshotBuild      prometheus.Histogram
	snapshotLastUnix   prometheus.Gauge
	snapshotCount      prometheus.Gauge
	projectedPlayers   *prometheus.GaugeVec
	dataVersion        prometheus.Gauge
	ecrUploads         *prometheus.CounterVec
	rowsSkipped        *prometheus.CounterVec
	filesLoaded        *prometheus.CounterVec
	rosterSize         *prometheus.GaugeVec
	sleeperRequests    *prometheus.CounterVec
	sleeperLatency     *prometheus.HistogramVec
	queueSize          prometheus.Gauge
	workerCount        prometheus.Gauge
	httpRequests       *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec

	// Queue metrics
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker metrics
	workerActive            prometheus.Gauge
	workerIdle              prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Error metrics
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec
	errorLatency      *prometheus.HistogramVec

	// Process metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gridcast",
		histogramBuckets: DefaultLatencyBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.enabled {
		// Collectors still exist so callers never nil-check, but nothing is exported.
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counter(auto promauto.Factory, name, help string) prometheus.Counter {
	return auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(auto promauto.Factory, name, help string, labels ...string) *prometheus.CounterVec {
	return auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(auto promauto.Factory, name, help string) prometheus.Gauge {
	return auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gaugeVec(auto promauto.Factory, name, help string, labels ...string) *prometheus.GaugeVec {
	return auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogram(auto promauto.Factory, name, help string, buckets []float64) prometheus.Histogram {
	return auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(auto promauto.Factory, name, help string, labels ...string) *prometheus.HistogramVec {
	return auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	b := m.histogramBuckets

	m.recomputes = m.counterVec(auto, "recomputes_total", "Projection recomputes by scoring system and outcome", "scoring", "status")
	m.snapshotBuild = m.histogram(auto, "snapshot_build_milliseconds", "Time to build one projection snapshot", b)
	m.snapshotLastUnix = m.gauge(auto, "snapshot_last_unix", "Unix time of the last published snapshot")
	m.snapshotCount = m.gauge(auto, "snapshots", "Snapshots currently held in the store")
	m.projectedPlayers = m.gaugeVec(auto, "projected_players", "Players in the latest snapshot", "scoring")
	m.dataVersion = m.gauge(auto, "data_version", "Current input data version")
	m.ecrUploads = m.counterVec(auto, "ecr_uploads_total", "ECR uploads by result", "result")
	m.rowsSkipped = m.counterVec(auto, "csv_rows_skipped_total", "Input rows dropped while parsing", "kind")
	m.filesLoaded = m.counterVec(auto, "files_loaded_total", "Data files loaded by kind", "kind")
	m.rosterSize = m.gaugeVec(auto, "roster_players", "Players in the active roster sets", "set")
	m.sleeperRequests = m.counterVec(auto, "sleeper_requests_total", "Sleeper API requests", "endpoint", "status")
	m.sleeperLatency = m.histogramVec(auto, "sleeper_request_milliseconds", "Sleeper API latency", "endpoint")
	m.queueSize = m.gauge(auto, "queue_size", "Pending recompute requests")
	m.workerCount = m.gauge(auto, "worker_count", "Recompute workers running")
	m.httpRequests = m.counterVec(auto, "http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestLatency = m.histogramVec(auto, "http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.queueCapacity = m.gauge(auto, "queue_capacity", "Recompute queue capacity")
	m.queueUtilization = m.gauge(auto, "queue_utilization_ratio", "Recompute queue fill ratio")
	m.queueEnqueued = m.counter(auto, "queue_enqueued_total", "Recompute requests enqueued")
	m.queueDequeued = m.counter(auto, "queue_dequeued_total", "Recompute requests dequeued")
	m.queueEnqueueErrors = m.counter(auto, "queue_enqueue_errors_total", "Recompute requests rejected by a full or closed queue")
	m.queueProcessingLatency = m.histogram(auto, "queue_processing_milliseconds", "Queue wait plus processing time", b)

	m.workerActive = m.gauge(auto, "worker_active", "Workers currently recomputing")
	m.workerIdle = m.gauge(auto, "worker_idle", "Workers waiting for requests")
	m.workerProcessingLatency = m.histogram(auto, "worker_processing_milliseconds", "Worker time per request", b)
	m.workerErrors = m.counter(auto, "worker_errors_total", "Recomputes that failed in a worker")

	m.errorsByComponent = m.counterVec(auto, "errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByType = m.counterVec(auto, "errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec(auto, "errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec(auto, "error_latency_milliseconds", "Latency of failed operations", "component", "error_type")

	m.systemMemoryUsage = m.gauge(auto, "system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge(auto, "system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram(auto, "system_gc_pause_milliseconds", "GC pause time",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Engine metrics.

// RecordRecompute counts one recompute with its outcome (ok, stale, error).
func RecordRecompute(scoring, status string) {
	globalManager.recomputes.WithLabelValues(scoring, status).Inc()
}

// RecordSnapshotBuild records a snapshot build time and marks the publish time.
func RecordSnapshotBuild(latencyMs float64) {
	globalManager.snapshotBuild.Observe(latencyMs)
	globalManager.snapshotLastUnix.Set(float64(time.Now().Unix()))
}

// UpdateSnapshotCount sets the number of stored snapshots.
func UpdateSnapshotCount(count int) {
	globalManager.snapshotCount.Set(float64(count))
}

// UpdateProjectedPlayers sets the player count of the latest snapshot for scoring.
func UpdateProjectedPlayers(scoring string, count int) {
	globalManager.projectedPlayers.WithLabelValues(scoring).Set(float64(count))
}

// UpdateDataVersion sets the current input data version.
func UpdateDataVersion(version uint64) {
	globalManager.dataVersion.Set(float64(version))
}

// RecordECRUpload counts an upload by result (accepted, duplicate, rejected).
func RecordECRUpload(result string) {
	globalManager.ecrUploads.WithLabelValues(result).Inc()
}

// RecordRowsSkipped adds n dropped rows for the given input kind.
func RecordRowsSkipped(kind string, n int) {
	if n > 0 {
		globalManager.rowsSkipped.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordFileLoaded counts one loaded data file.
func RecordFileLoaded(kind string) {
	globalManager.filesLoaded.WithLabelValues(kind).Inc()
}

// UpdateRosterSize sets the size of the user's roster and of all rostered players.
func UpdateRosterSize(mine, rostered int) {
	globalManager.rosterSize.WithLabelValues("mine").Set(float64(mine))
	globalManager.rosterSize.WithLabelValues("rostered").Set(float64(rostered))
}

// RecordSleeperRequest records one Sleeper API call.
func RecordSleeperRequest(endpoint, status string, latencyMs float64) {
	globalManager.sleeperRequests.WithLabelValues(endpoint, status).Inc()
	globalManager.sleeperLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestLatency.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue metrics.

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker metrics.

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdle.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// Process metrics.

// UpdateSystemMemoryUsage sets the heap usage in bytes.
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

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before GetRegistry is handed to the
// metrics endpoint.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry, globalManager = registry, m
}

// RefreshInterval is the refresh interval of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
