// Package metrics provides Prometheus metrics for the sportselo rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// deltaBuckets covers rating changes from sub-point draws up to the
// largest small-field motorsport swings.
var deltaBuckets = []float64{0.5, 1, 2, 4, 8, 16, 24, 32, 50, 75, 100}

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	contestsSubmitted *prometheus.CounterVec
	contestsApplied   *prometheus.CounterVec
	contestsRejected  *prometheus.CounterVec
	contestsDuplicate prometheus.Counter
	ratingDelta       *prometheus.HistogramVec
	applyLatency      prometheus.Histogram

	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueueErrs *prometheus.CounterVec
	workerCount      prometheus.Gauge
	workerInFlight   prometheus.Gauge
	workerPending    prometheus.Gauge

	competitorsTotal *prometheus.GaugeVec
	storeLatency     *prometheus.HistogramVec

	eventsPublished *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var (
	globalManager  *Manager                    //nolint:gochecknoglobals // process-wide metrics
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out
)

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a Manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sportselo",
		subsystem:        "rating",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.contestsSubmitted = m.counterVec("contests_submitted_total", "Contests accepted for asynchronous application", "kind")
	m.contestsApplied = m.counterVec("contests_applied_total", "Contests whose rating updates were persisted", "kind")
	m.contestsRejected = m.counterVec("contests_rejected_total", "Contests rejected by validation or ordering checks", "kind", "reason")
	m.contestsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "contests_duplicate_total",
		Help: "Contest submissions dropped as duplicates", ConstLabels: m.constLabels,
	})
	m.ratingDelta = m.histogramVec("rating_delta_abs", "Absolute rating change per competitor per contest", deltaBuckets, "kind")
	m.applyLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "apply_latency_milliseconds",
		Help: "Time to compute and persist one contest", Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	})

	m.queueSize = m.gauge("queue_size", "Contests waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Configured queue capacity")
	m.queueEnqueueErrs = m.counterVec("queue_enqueue_errors_total", "Failed enqueue attempts", "reason")
	m.workerCount = m.gauge("worker_count", "Number of workers applying contests")
	m.workerInFlight = m.gauge("worker_in_flight", "Contests currently being applied")
	m.workerPending = m.gauge("worker_pending", "Contests held back waiting for a busy competitor")

	m.competitorsTotal = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "competitors_total",
		Help: "Competitors tracked per sport", ConstLabels: m.constLabels,
	}, []string{"sport"})
	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Repository operation latency", m.histogramBuckets, "op")

	m.eventsPublished = m.counterVec("events_published_total", "Rating update events published", "result")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

// RecordContestSubmitted counts an accepted submission.
func RecordContestSubmitted(kind string) { globalManager.contestsSubmitted.WithLabelValues(kind).Inc() }

// RecordContestApplied counts a persisted contest.
func RecordContestApplied(kind string) { globalManager.contestsApplied.WithLabelValues(kind).Inc() }

// RecordContestRejected counts a contest that failed validation or ordering.
func RecordContestRejected(kind, reason string) {
	globalManager.contestsRejected.WithLabelValues(kind, reason).Inc()
}

// RecordContestDuplicate counts a dropped duplicate submission.
func RecordContestDuplicate() { globalManager.contestsDuplicate.Inc() }

// ObserveRatingDelta records the magnitude of one competitor's change.
func ObserveRatingDelta(kind string, delta float64) {
	if delta < 0 {
		delta = -delta
	}
	globalManager.ratingDelta.WithLabelValues(kind).Observe(delta)
}

// RecordApplyLatency records end-to-end apply latency.
func RecordApplyLatency(ms float64) { globalManager.applyLatency.Observe(ms) }

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) { globalManager.queueEnqueueErrs.WithLabelValues(reason).Inc() }

// UpdateWorkerCount sets the worker pool size.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerInFlight sets the number of contests being applied.
func UpdateWorkerInFlight(count int) { globalManager.workerInFlight.Set(float64(count)) }

// UpdateWorkerPending sets the number of contests blocked on busy competitors.
func UpdateWorkerPending(count int) { globalManager.workerPending.Set(float64(count)) }

// UpdateCompetitorsTotal sets the competitor count for a sport.
func UpdateCompetitorsTotal(sport string, count int) {
	globalManager.competitorsTotal.WithLabelValues(sport).Set(float64(count))
}

// RecordStoreLatency records repository latency for op.
func RecordStoreLatency(op string, ms float64) { globalManager.storeLatency.WithLabelValues(op).Observe(ms) }

// RecordEventPublished counts a publish attempt by result ("ok" or "error").
func RecordEventPublished(result string) { globalManager.eventsPublished.WithLabelValues(result).Inc() }

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records one HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordErrorByComponent counts an error.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the registry all global metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
