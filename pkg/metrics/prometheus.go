package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds every metric of the process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Client protocol
	submissions        *prometheus.CounterVec
	trackerTransitions *prometheus.CounterVec
	settlementLatency  prometheus.Histogram
	settlementPolls    prometheus.Counter
	cacheRefreshes     *prometheus.CounterVec
	ledgerCallLatency  *prometheus.HistogramVec
	ledgerCallErrors   *prometheus.CounterVec
	activeSessions     prometheus.Gauge

	// Ledger node
	mempoolSize        prometheus.Gauge
	mempoolCapacity    prometheus.Gauge
	mempoolEnqueued    prometheus.Counter
	mempoolRejected    prometheus.Counter
	blocks             prometheus.Counter
	blockLatency       prometheus.Histogram
	transactions       *prometheus.CounterVec
	duplicateTx        prometheus.Counter
	tableSize          prometheus.Gauge
	trackedPlayers     prometheus.Gauge
	events             *prometheus.CounterVec
	tableUpdateLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

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

// Init rebuilds the global metrics on a fresh registry with opts applied.
// Call it once at startup, before anything records a metric.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ledgerboard",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
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

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.submissions = m.counterVec("submissions_total",
		"Submission outcomes signalled to the user", "outcome", "kind")
	m.trackerTransitions = m.counterVec("tracker_transitions_total",
		"Transaction tracker phase transitions", "from", "to")
	m.settlementLatency = m.histogram("settlement_latency_milliseconds",
		"Time from acceptance to observed settlement")
	m.settlementPolls = m.counter("settlement_polls_total",
		"Settlement observations issued while pending")
	m.cacheRefreshes = m.counterVec("cache_refreshes_total",
		"Read cache slot refreshes", "slot", "result")
	m.ledgerCallLatency = m.histogramVec("ledger_call_duration_milliseconds",
		"Ledger client call latency", "op")
	m.ledgerCallErrors = m.counterVec("ledger_call_errors_total",
		"Ledger client call failures", "op", "kind")
	m.activeSessions = m.gauge("active_sessions",
		"Connected client sessions")

	m.mempoolSize = m.gauge("mempool_size",
		"Accepted transactions waiting for a block")
	m.mempoolCapacity = m.gauge("mempool_capacity",
		"Maximum mempool size")
	m.mempoolEnqueued = m.counter("mempool_enqueued_total",
		"Transactions accepted into the mempool")
	m.mempoolRejected = m.counter("mempool_rejected_total",
		"Transactions refused because the mempool was full or closed")
	m.blocks = m.counter("blocks_total",
		"Blocks produced by the ledger node")
	m.blockLatency = m.histogram("block_latency_milliseconds",
		"Time a transaction spent between acceptance and inclusion")
	m.transactions = m.counterVec("transactions_total",
		"Settled transactions by status", "status")
	m.duplicateTx = m.counter("duplicate_transactions_total",
		"Replayed transaction references refused")
	m.tableSize = m.gauge("table_size",
		"Entries in the top table")
	m.trackedPlayers = m.gauge("tracked_players",
		"Players with a recorded personal best")
	m.events = m.counterVec("events_total",
		"Ledger notifications emitted", "kind")
	m.tableUpdateLatency = m.histogram("table_update_latency_milliseconds",
		"Top table update latency")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordSubmission counts a user-facing outcome. kind is empty on success.
func RecordSubmission(outcome, kind string) {
	globalManager.submissions.WithLabelValues(outcome, kind).Inc()
}

// RecordTrackerTransition counts a phase change.
func RecordTrackerTransition(from, to string) {
	globalManager.trackerTransitions.WithLabelValues(from, to).Inc()
}

// RecordSettlementLatency records acceptance-to-settlement time.
func RecordSettlementLatency(latencyMs float64) {
	globalManager.settlementLatency.Observe(latencyMs)
}

// RecordSettlementPoll counts one settlement observation.
func RecordSettlementPoll() {
	globalManager.settlementPolls.Inc()
}

// RecordCacheRefresh counts a slot refresh with result "ok" or "error".
func RecordCacheRefresh(slot, result string) {
	globalManager.cacheRefreshes.WithLabelValues(slot, result).Inc()
}

// RecordLedgerCall records a ledger client call.
func RecordLedgerCall(op string, latencyMs float64) {
	globalManager.ledgerCallLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordLedgerCallError counts a failed ledger client call.
func RecordLedgerCallError(op, kind string) {
	globalManager.ledgerCallErrors.WithLabelValues(op, kind).Inc()
}

// UpdateActiveSessions sets the number of connected sessions.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// UpdateMempoolSize sets the number of queued transactions.
func UpdateMempoolSize(size int) {
	globalManager.mempoolSize.Set(float64(size))
}

// UpdateMempoolCapacity sets the mempool bound.
func UpdateMempoolCapacity(capacity int) {
	globalManager.mempoolCapacity.Set(float64(capacity))
}

// RecordMempoolEnqueue counts an accepted transaction.
func RecordMempoolEnqueue() {
	globalManager.mempoolEnqueued.Inc()
}

// RecordMempoolRejected counts a transaction refused at the door.
func RecordMempoolRejected() {
	globalManager.mempoolRejected.Inc()
}

// RecordBlock counts a produced block.
func RecordBlock() {
	globalManager.blocks.Inc()
}

// RecordBlockLatency records acceptance-to-inclusion time.
func RecordBlockLatency(latencyMs float64) {
	globalManager.blockLatency.Observe(latencyMs)
}

// RecordTransaction counts a settled transaction.
func RecordTransaction(status string) {
	globalManager.transactions.WithLabelValues(status).Inc()
}

// RecordDuplicateTransaction counts a refused replay.
func RecordDuplicateTransaction() {
	globalManager.duplicateTx.Inc()
}

// UpdateTableSize sets the top table size.
func UpdateTableSize(size int) {
	globalManager.tableSize.Set(float64(size))
}

// UpdateTrackedPlayers sets the number of players with a personal best.
func UpdateTrackedPlayers(count int) {
	globalManager.trackedPlayers.Set(float64(count))
}

// RecordEvent counts an emitted ledger notification.
func RecordEvent(kind string) {
	globalManager.events.WithLabelValues(kind).Inc()
}

// RecordTableUpdateLatency records a top table update.
func RecordTableUpdateLatency(latencyMs float64) {
	globalManager.tableUpdateLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
