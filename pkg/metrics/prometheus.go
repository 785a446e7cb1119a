// Package metrics provides Prometheus metrics for the touchline path service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Breaker states as exported on the breaker_state gauge.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// Manager manages all Prometheus metrics for the touchline service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	lengthBuckets    []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Search metrics
	searches            *prometheus.CounterVec
	searchLatency       prometheus.Histogram
	pathLength          prometheus.Histogram
	searchSkippedEdges  prometheus.Counter
	searchFailedLookups prometheus.Counter
	searchInvalidStints prometheus.Counter

	// Store metrics
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec
	storeReloads prometheus.Counter
	storePeople  prometheus.Gauge
	storeStints  prometheus.Gauge
	breakerState prometheus.Gauge

	// Result cache metrics
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheCoalesced prometheus.Counter

	// Batch queue metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	errorRateByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "touchline",
		subsystem:        "paths",
		histogramBuckets: prometheus.DefBuckets,
		lengthBuckets:    prometheus.LinearBuckets(1, 1, 12),
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether recording is switched on.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often gauge updaters should sample.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	// Search metrics
	m.searches = auto.NewCounterVec(
		m.counterOpts("searches_total", "Total number of path searches by outcome"),
		[]string{"outcome"},
	)
	m.searchLatency = auto.NewHistogram(
		m.histogramOpts("search_latency_milliseconds", "Path search latency in milliseconds", m.histogramBuckets))
	m.pathLength = auto.NewHistogram(
		m.histogramOpts("path_length_steps", "Number of steps in found paths", m.lengthBuckets))
	m.searchSkippedEdges = auto.NewCounter(
		m.counterOpts("search_skipped_edges_total", "Edges skipped because no connection kind applied"))
	m.searchFailedLookups = auto.NewCounter(
		m.counterOpts("search_failed_lookups_total", "Store lookups that failed during a search"))
	m.searchInvalidStints = auto.NewCounter(
		m.counterOpts("search_invalid_stints_total", "Stints ignored because their interval is invalid"))

	// Store metrics
	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Affiliation store operation latency in milliseconds", m.histogramBuckets),
		[]string{"operation"},
	)
	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Affiliation store errors by operation"),
		[]string{"operation"},
	)
	m.storeReloads = auto.NewCounter(
		m.counterOpts("store_reloads_total", "Number of dataset reloads applied to the store"))
	m.storePeople = auto.NewGauge(
		m.gaugeOpts("store_people", "People currently held by the store"))
	m.storeStints = auto.NewGauge(
		m.gaugeOpts("store_stints", "Stints currently held by the store"))
	m.breakerState = auto.NewGauge(
		m.gaugeOpts("breaker_state", "Store circuit breaker state (0 closed, 1 half-open, 2 open)"))

	// Result cache metrics
	m.cacheHits = auto.NewCounter(
		m.counterOpts("cache_hits_total", "Path results served from the result cache"))
	m.cacheMisses = auto.NewCounter(
		m.counterOpts("cache_misses_total", "Path requests that missed the result cache"))
	m.cacheCoalesced = auto.NewCounter(
		m.counterOpts("cache_coalesced_total", "Path requests that joined an identical in-flight search"))

	// Batch queue metrics
	m.queueSize = auto.NewGauge(
		m.gaugeOpts("queue_size", "Current size of the batch job queue"))
	m.queueCapacity = auto.NewGauge(
		m.gaugeOpts("queue_capacity", "Maximum batch job queue capacity"))
	m.queueUtilization = auto.NewGauge(
		m.gaugeOpts("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)"))
	m.queueEnqueueRate = auto.NewCounter(
		m.counterOpts("queue_enqueue_total", "Total number of batch jobs enqueued"))
	m.queueDequeueRate = auto.NewCounter(
		m.counterOpts("queue_dequeue_total", "Total number of batch jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(
		m.counterOpts("queue_enqueue_errors_total", "Total number of rejected enqueues"))
	m.queueProcessingLatency = auto.NewHistogram(
		m.histogramOpts("queue_processing_latency_milliseconds", "Time a batch job waited in the queue", m.histogramBuckets))

	// Worker metrics
	m.workerCount = auto.NewGauge(
		m.gaugeOpts("worker_count", "Configured number of batch workers"))
	m.workerActiveCount = auto.NewGauge(
		m.gaugeOpts("worker_active_count", "Number of workers currently running a job"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Worker job processing latency in milliseconds", m.histogramBuckets))
	m.workerErrorRate = auto.NewCounter(
		m.counterOpts("worker_errors_total", "Total number of worker job failures"))

	// HTTP metrics
	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)

	// System metrics
	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Search Metrics Functions.

// RecordSearch counts a finished search under its outcome label
// (found, not_found, same_person, person_not_found, timeout, unavailable, invalid_request).
func RecordSearch(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.searches.WithLabelValues(outcome).Inc()
}

// RecordSearchLatency records search latency in milliseconds.
func RecordSearchLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.searchLatency.Observe(latencyMs)
}

// RecordPathLength records the number of steps of a found path.
func RecordPathLength(steps int) {
	if !globalManager.enabled {
		return
	}
	globalManager.pathLength.Observe(float64(steps))
}

// RecordSearchDiagnostics adds per-search data problems to the running totals.
func RecordSearchDiagnostics(skippedEdges, failedLookups, invalidStints int) {
	if !globalManager.enabled {
		return
	}
	globalManager.searchSkippedEdges.Add(float64(skippedEdges))
	globalManager.searchFailedLookups.Add(float64(failedLookups))
	globalManager.searchInvalidStints.Add(float64(invalidStints))
}

// Store Metrics Functions.

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError increments the store error counter for an operation.
func RecordStoreError(operation string) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// RecordStoreReload counts a dataset reload.
func RecordStoreReload() {
	if !globalManager.enabled {
		return
	}
	globalManager.storeReloads.Inc()
}

// UpdateStoreSize sets the people and stint gauges.
func UpdateStoreSize(people, stints int) {
	if !globalManager.enabled {
		return
	}
	globalManager.storePeople.Set(float64(people))
	globalManager.storeStints.Set(float64(stints))
}

// UpdateBreakerState sets the breaker state gauge (BreakerClosed, BreakerHalfOpen, BreakerOpen).
func UpdateBreakerState(state int) {
	if !globalManager.enabled {
		return
	}
	globalManager.breakerState.Set(float64(state))
}

// Cache Metrics Functions.

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	if !globalManager.enabled {
		return
	}
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	if !globalManager.enabled {
		return
	}
	globalManager.cacheMisses.Inc()
}

// RecordCacheCoalesced increments the coalesced request counter.
func RecordCacheCoalesced() {
	if !globalManager.enabled {
		return
	}
	globalManager.cacheCoalesced.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records how long a job waited before a worker took it.
func RecordQueueProcessingLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if !globalManager.enabled {
		return
	}
	globalManager.workerErrorRate.Inc()
}

// HTTP Metrics Functions.

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

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns how often gauge updaters should sample.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
