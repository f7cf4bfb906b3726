package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the scoring service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Write path
	commandsProcessed  *prometheus.CounterVec
	commandsFailed     *prometheus.CounterVec
	commandsDuplicate  prometheus.Counter
	commandLatency     prometheus.Histogram
	recomputeDuration  prometheus.Histogram
	snapshotLastUnix   prometheus.Gauge
	snapshotsPublished prometheus.Counter

	// Standings
	totalTeams          prometheus.Gauge
	totalEvents         prometheus.Gauge
	completedEvents     prometheus.Gauge
	notificationsQueued prometheus.Counter

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueBackpressed prometheus.Counter

	// Store
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         prometheus.Counter

	errorsByComponent *prometheus.CounterVec
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
		namespace:        "intramurals",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.commandsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "commands_processed_total",
		Help: "Total number of mutation commands applied by the writer",
	}, []string{"command"})
	m.commandsFailed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "commands_failed_total",
		Help: "Total number of mutation commands rejected by the writer",
	}, []string{"command"})
	m.commandsDuplicate = m.counter("commands_duplicate_total", "Mutations skipped because their idempotency key was already seen")
	m.commandLatency = m.histogram("command_latency_milliseconds", "Time from enqueue to applied for a mutation command")
	m.recomputeDuration = m.histogram("recompute_duration_milliseconds", "Duration of a full standings recompute")
	m.snapshotLastUnix = m.gauge("snapshot_last_unix", "Unix timestamp of the last standings snapshot publish")
	m.snapshotsPublished = m.counter("snapshots_published_total", "Total number of standings snapshots published")

	m.totalTeams = m.gauge("teams_total", "Number of teams, facilitator included")
	m.totalEvents = m.gauge("events_total", "Number of events")
	m.completedEvents = m.gauge("events_completed_total", "Number of events with submitted results")
	m.notificationsQueued = m.counter("notifications_total", "Total number of notifications emitted")

	m.queueSize = m.gauge("queue_size", "Current size of the command queue (backlog indicator)")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum command queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of commands enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of commands dequeued")
	m.queueBackpressed = m.counter("queue_backpressure_total", "Commands rejected because the queue was full")

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "store_latency_milliseconds",
		Help:    "Record store operation latency in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"driver", "op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.rateLimited = m.counter("http_rate_limited_total", "Mutating requests rejected by the per-IP limiter")

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "errors_by_component_total",
		Help: "Total number of errors by component",
	}, []string{"component", "error_type"})
}

// RecordCommandProcessed increments the applied counter for a command kind.
func RecordCommandProcessed(command string) {
	globalManager.commandsProcessed.WithLabelValues(command).Inc()
}

// RecordCommandFailed increments the rejected counter for a command kind.
func RecordCommandFailed(command string) {
	globalManager.commandsFailed.WithLabelValues(command).Inc()
}

// RecordCommandDuplicate increments the idempotent-replay counter.
func RecordCommandDuplicate() {
	globalManager.commandsDuplicate.Inc()
}

// RecordCommandLatency records enqueue-to-applied latency in milliseconds.
func RecordCommandLatency(latencyMs float64) {
	globalManager.commandLatency.Observe(latencyMs)
}

// RecordRecompute records a recompute duration and marks the snapshot publish.
func RecordRecompute(durationMs float64, publishedUnix int64) {
	globalManager.recomputeDuration.Observe(durationMs)
	globalManager.snapshotLastUnix.Set(float64(publishedUnix))
	globalManager.snapshotsPublished.Inc()
}

// UpdateStandings sets the team and event gauges.
func UpdateStandings(teams, events, completed int) {
	globalManager.totalTeams.Set(float64(teams))
	globalManager.totalEvents.Set(float64(events))
	globalManager.completedEvents.Set(float64(completed))
}

// RecordNotification increments the notification counter.
func RecordNotification() {
	globalManager.notificationsQueued.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueBackpressure increments the rejected-enqueue counter.
func RecordQueueBackpressure() {
	globalManager.queueBackpressed.Inc()
}

// RecordStoreLatency records a record store operation latency.
func RecordStoreLatency(driver, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(driver, op).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited increments the rate limited counter.
func RecordRateLimited() {
	globalManager.rateLimited.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
