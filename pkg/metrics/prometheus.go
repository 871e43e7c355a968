// Package metrics provides Prometheus metrics for the inkcheck scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	OutcomeScored       = "scored"
	OutcomeRejected     = "rejected"
	OutcomeBackpressure = "backpressure"
	OutcomeFailed       = "failed"
)

var (
	riskBuckets       = prometheus.LinearBuckets(0, 10, 11)
	traceEventBuckets = prometheus.ExponentialBuckets(10, 4, 9)
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Scoring
	submissions       *prometheus.CounterVec
	rejections        *prometheus.CounterVec
	riskScore         prometheus.Histogram
	ruleTriggers      *prometheus.CounterVec
	evaluationLatency prometheus.Histogram
	traceEvents       prometheus.Histogram
	configReloads     *prometheus.CounterVec

	// Triage board
	boardSessions      prometheus.Gauge
	boardEvictions     prometheus.Counter
	boardUpdateLatency prometheus.Histogram
	boardQueryLatency  prometheus.Histogram

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerBusy              prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out of /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "inkcheck",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.submissions = m.counterVec("submissions_total", "Submissions by outcome", "outcome")
	m.rejections = m.counterVec("rejections_total", "Rejected submissions by error kind", "kind")
	m.riskScore = m.histogram("risk_score", "Distribution of assigned risk scores", riskBuckets)
	m.ruleTriggers = m.counterVec("rule_triggers_total", "Rule triggers by rule id", "rule")
	m.evaluationLatency = m.histogram("evaluation_latency_milliseconds", "Parse, extract and score latency", m.histogramBuckets)
	m.traceEvents = m.histogram("trace_events", "Number of events per scored trace", traceEventBuckets)
	m.configReloads = m.counterVec("config_reloads_total", "Configuration reloads by result", "result")

	m.boardSessions = m.gauge("board_sessions", "Sessions held on the triage board")
	m.boardEvictions = m.counter("board_evictions_total", "Sessions evicted from the triage board")
	m.boardUpdateLatency = m.histogram("board_update_latency_milliseconds", "Triage board upsert latency", m.histogramBuckets)
	m.boardQueryLatency = m.histogram("board_query_latency_milliseconds", "Triage board query latency", m.histogramBuckets)

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued jobs")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs accepted by the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs handed to workers")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs refused by the queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Workers in the pool")
	m.workerBusy = m.gauge("worker_busy", "Workers currently evaluating a job")
	m.workerMessagesPerSecond = m.gauge("worker_messages_per_second", "Jobs completed per second")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Job latency inside a worker", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Jobs that ended in an error")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_request_duration_milliseconds", Help: "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.rateLimited = m.counterVec("rate_limited_total", "Requests refused by the rate limiter", "endpoint")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Most recent GC pause", m.histogramBuckets)
}

// RecordSubmission counts a submission by outcome.
func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

// RecordRejection counts a rejected submission by error kind.
func RecordRejection(kind string) {
	globalManager.rejections.WithLabelValues(kind).Inc()
}

// RecordRisk observes an assigned score and the rules behind it.
func RecordRisk(score int, rules []string) {
	globalManager.riskScore.Observe(float64(score))
	for _, r := range rules {
		globalManager.ruleTriggers.WithLabelValues(r).Inc()
	}
}

// RecordEvaluationLatency records end-to-end evaluation latency.
func RecordEvaluationLatency(latencyMs float64) {
	globalManager.evaluationLatency.Observe(latencyMs)
}

// RecordTraceEvents records the size of a scored trace.
func RecordTraceEvents(n int) {
	globalManager.traceEvents.Observe(float64(n))
}

// RecordConfigReload counts a reload attempt; result is "applied" or "rejected".
func RecordConfigReload(result string) {
	globalManager.configReloads.WithLabelValues(result).Inc()
}

// UpdateBoardSessions sets the triage board size.
func UpdateBoardSessions(n int) {
	globalManager.boardSessions.Set(float64(n))
}

// RecordBoardEviction counts an eviction from the triage board.
func RecordBoardEviction() {
	globalManager.boardEvictions.Inc()
}

// RecordBoardUpdateLatency records triage board upsert latency.
func RecordBoardUpdateLatency(latencyMs float64) {
	globalManager.boardUpdateLatency.Observe(latencyMs)
}

// RecordBoardQueryLatency records triage board read latency.
func RecordBoardQueryLatency(latencyMs float64) {
	globalManager.boardQueryLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

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

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// AddWorkerBusy adjusts the number of busy workers by delta.
func AddWorkerBusy(delta int) {
	globalManager.workerBusy.Add(float64(delta))
}

// UpdateWorkerMessagesPerSecond sets the pool throughput.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records job latency inside a worker.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request refused by the limiter.
func RecordRateLimited(endpoint string) {
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
