// Package metrics provides Prometheus metrics for the stylist matching service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Recommendation metrics
	recommendations       prometheus.Counter
	recommendationFallbck prometheus.Counter
	recommendationLatency prometheus.Histogram

	// Matching metrics
	matchRuns      prometheus.Counter
	matchProposals prometheus.Counter
	matchPairs     prometheus.Counter
	matchLatency   prometheus.Histogram

	// Rating pipeline metrics
	outcomesProcessed prometheus.Counter
	outcomesDuplicate prometheus.Counter
	eloUpdates        prometheus.Counter
	versionConflicts  prometheus.Counter
	retriesExhausted  prometheus.Counter
	roleGrants        *prometheus.CounterVec

	// Repository metrics
	stylistsTotal           prometheus.Gauge
	offeringsTotal          prometheus.Gauge
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	systemGoroutineCount prometheus.Gauge
	systemMemoryUsage    prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager. Metrics register on the default
// Prometheus registerer unless WithPrometheusRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "stylematch",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	m.recommendations = m.counter("recommendations_total", "Total number of recommendation pages served")
	m.recommendationFallbck = m.counter("recommendation_fallbacks_total", "Recommendations answered from the full catalog")
	m.recommendationLatency = m.histogram("recommendation_latency_milliseconds", "Recommendation latency in milliseconds")

	m.matchRuns = m.counter("match_runs_total", "Total number of stable matching runs")
	m.matchProposals = m.counter("match_proposals_total", "Proposals made across all matching runs")
	m.matchPairs = m.counter("match_pairs_total", "Pairs produced across all matching runs")
	m.matchLatency = m.histogram("match_latency_milliseconds", "Stable matching latency in milliseconds")

	m.outcomesProcessed = m.counter("outcomes_processed_total", "Match outcomes applied to ratings")
	m.outcomesDuplicate = m.counter("outcomes_duplicate_total", "Match outcomes dropped as replays")
	m.eloUpdates = m.counter("elo_updates_total", "Stylist ratings written by the Elo pipeline")
	m.versionConflicts = m.counter("rating_version_conflicts_total", "Optimistic rating writes that lost a race")
	m.retriesExhausted = m.counter("rating_retries_exhausted_total", "Outcomes abandoned after the retry budget")
	m.roleGrants = m.counterVec("role_grants_total", "Stylist role grant attempts by result", "result")

	m.stylistsTotal = m.gauge("stylists_total", "Number of stylists known to the store")
	m.offeringsTotal = m.gauge("offerings_total", "Number of service offerings in the catalog")
	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Repository write latency in milliseconds")
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Repository read latency in milliseconds")

	m.queueSize = m.gauge("queue_size", "Current number of queued match outcomes")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued match outcomes")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Outcomes accepted by the queue")
	m.queueDequeued = m.counter("queue_dequeued_total", "Outcomes taken from the queue")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Outcomes rejected by a full or closed queue")

	m.workerCount = m.gauge("worker_count", "Number of rating workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Rating workers currently processing an outcome")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-outcome processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Outcomes that failed processing")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes in use")
}

func active() *Manager {
	if globalManager == nil || !globalManager.enabled {
		return nil
	}
	return globalManager
}

// RecordRecommendation counts a served page and its latency.
func RecordRecommendation(latencyMs float64, usedFallback bool) {
	if m := active(); m != nil {
		m.recommendations.Inc()
		m.recommendationLatency.Observe(latencyMs)
		if usedFallback {
			m.recommendationFallbck.Inc()
		}
	}
}

// RecordMatchRun counts a stable matching run.
func RecordMatchRun(latencyMs float64, proposals, pairs int) {
	if m := active(); m != nil {
		m.matchRuns.Inc()
		m.matchLatency.Observe(latencyMs)
		m.matchProposals.Add(float64(proposals))
		m.matchPairs.Add(float64(pairs))
	}
}

// RecordOutcomeProcessed increments the applied outcomes counter.
func RecordOutcomeProcessed() {
	if m := active(); m != nil {
		m.outcomesProcessed.Inc()
	}
}

// RecordOutcomeDuplicate increments the replayed outcomes counter.
func RecordOutcomeDuplicate() {
	if m := active(); m != nil {
		m.outcomesDuplicate.Inc()
	}
}

// RecordEloUpdate counts n rating writes.
func RecordEloUpdate(n int) {
	if m := active(); m != nil {
		m.eloUpdates.Add(float64(n))
	}
}

// RecordVersionConflict increments the lost optimistic write counter.
func RecordVersionConflict() {
	if m := active(); m != nil {
		m.versionConflicts.Inc()
	}
}

// RecordRetriesExhausted increments the abandoned outcome counter.
func RecordRetriesExhausted() {
	if m := active(); m != nil {
		m.retriesExhausted.Inc()
	}
}

// RecordRoleGrant counts a role grant attempt; result is "ok" or "error".
func RecordRoleGrant(result string) {
	if m := active(); m != nil {
		m.roleGrants.WithLabelValues(result).Inc()
	}
}

// UpdateStylistsTotal sets the number of stylists in the store.
func UpdateStylistsTotal(count int) {
	if m := active(); m != nil {
		m.stylistsTotal.Set(float64(count))
	}
}

// UpdateOfferingsTotal sets the number of offerings in the catalog.
func UpdateOfferingsTotal(count int) {
	if m := active(); m != nil {
		m.offeringsTotal.Set(float64(count))
	}
}

// RecordRepositoryUpdateLatency records repository write latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	if m := active(); m != nil {
		m.repositoryUpdateLatency.Observe(latencyMs)
	}
}

// RecordRepositoryQueryLatency records repository read latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	if m := active(); m != nil {
		m.repositoryQueryLatency.Observe(latencyMs)
	}
}

// UpdateQueueSize sets the queue depth and utilization against the last
// reported capacity.
func UpdateQueueSize(size, capacity int) {
	if m := active(); m != nil {
		m.queueSize.Set(float64(size))
		if capacity > 0 {
			m.queueUtilization.Set(float64(size) / float64(capacity))
		}
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if m := active(); m != nil {
		m.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if m := active(); m != nil {
		m.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if m := active(); m != nil {
		m.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if m := active(); m != nil {
		m.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if m := active(); m != nil {
		m.workerCount.Set(float64(count))
	}
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	if m := active(); m != nil {
		m.workerActiveCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records per-outcome processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if m := active(); m != nil {
		m.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if m := active(); m != nil {
		m.workerErrors.Inc()
	}
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if m := active(); m != nil {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if m := active(); m != nil {
		m.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m := active(); m != nil {
		m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// UpdateSystemStats sets the goroutine count and heap usage.
func UpdateSystemStats(goroutines int, heapBytes uint64) {
	if m := active(); m != nil {
		m.systemGoroutineCount.Set(float64(goroutines))
		m.systemMemoryUsage.Set(float64(heapBytes))
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
