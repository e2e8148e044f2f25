// Package metrics provides Prometheus metrics for the scorehub service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for scorehub.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Submission path
	submissions     *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
	storeErrors     *prometheus.CounterVec
	buildLatency    prometheus.Histogram
	storedScores    prometheus.Gauge
	ledgerSize      prometheus.Gauge
	leaderboardSize prometheus.Gauge

	// Realtime fan-out
	activeConnections prometheus.Gauge
	livePlayers       prometheus.Gauge
	broadcasts        *prometheus.CounterVec
	framesQueued      prometheus.Counter
	framesDropped     prometheus.Counter
	framesWritten     prometheus.Counter
	framesMalformed   prometheus.Counter
	evictions         *prometheus.CounterVec
	writeLatency      prometheus.Histogram

	// Client side
	clientReconnects  prometheus.Counter
	clientTransitions *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
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
	customRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scorehub",
		subsystem:        "hub",
		histogramBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often system gauges should be sampled.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.submissions = m.counterVec("submissions_total",
		"Score submissions by game and outcome (accepted, rejected, failed)", "game", "outcome")
	m.rejections = m.counterVec("rejections_total",
		"Rejected score submissions by reason", "reason")
	m.storeLatency = m.histogramVec("store_latency_milliseconds",
		"Score store operation latency in milliseconds", "operation")
	m.storeErrors = m.counterVec("store_errors_total",
		"Score store failures by operation", "operation")
	m.buildLatency = m.histogram("leaderboard_build_latency_milliseconds",
		"Leaderboard aggregation latency in milliseconds", m.histogramBuckets)
	m.storedScores = m.gauge("stored_scores",
		"Number of scores held by the store")
	m.ledgerSize = m.gauge("rate_limit_ledger_size",
		"Number of (player, game) keys tracked by the rate limiter")
	m.leaderboardSize = m.gauge("leaderboard_entries",
		"Number of entries in the last built leaderboard")

	m.activeConnections = m.gauge("connections_active",
		"Currently open realtime connections")
	m.livePlayers = m.gauge("players_live",
		"Players currently in the live set")
	m.broadcasts = m.counterVec("broadcasts_total",
		"Broadcast frames fanned out by message type", "type")
	m.framesQueued = m.counter("frames_queued_total",
		"Outbound frames accepted by connection queues")
	m.framesDropped = m.counter("frames_dropped_total",
		"Outbound frames dropped because a connection queue was full or closed")
	m.framesWritten = m.counter("frames_written_total",
		"Outbound frames written to sockets")
	m.framesMalformed = m.counter("frames_malformed_total",
		"Inbound frames discarded because they could not be parsed")
	m.evictions = m.counterVec("evictions_total",
		"Connections removed by the hub by cause", "cause")
	m.writeLatency = m.histogram("frame_write_latency_milliseconds",
		"Socket write latency in milliseconds", m.histogramBuckets)

	m.clientReconnects = m.counter("client_reconnect_attempts_total",
		"Reconnect attempts scheduled by the client connection manager")
	m.clientTransitions = m.counterVec("client_transitions_total",
		"Client connection state transitions by target state", "state")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordSubmission counts a submission outcome for a game.
func RecordSubmission(game, outcome string) {
	globalManager.submissions.WithLabelValues(game, outcome).Inc()
}

// RecordRejection counts a rejection by its reason.
func RecordRejection(reason string) {
	globalManager.rejections.WithLabelValues(reason).Inc()
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// RecordLeaderboardBuild records leaderboard aggregation latency and size.
func RecordLeaderboardBuild(latencyMs float64, entries int) {
	globalManager.buildLatency.Observe(latencyMs)
	globalManager.leaderboardSize.Set(float64(entries))
}

// UpdateStoredScores sets the stored score count.
func UpdateStoredScores(count int) {
	globalManager.storedScores.Set(float64(count))
}

// UpdateLedgerSize sets the rate limiter ledger size.
func UpdateLedgerSize(size int) {
	globalManager.ledgerSize.Set(float64(size))
}

// UpdateActiveConnections sets the open connection count.
func UpdateActiveConnections(count int) {
	globalManager.activeConnections.Set(float64(count))
}

// UpdateLivePlayers sets the live player count.
func UpdateLivePlayers(count int) {
	globalManager.livePlayers.Set(float64(count))
}

// RecordBroadcast counts a fanned-out frame by message type.
func RecordBroadcast(msgType string) {
	globalManager.broadcasts.WithLabelValues(msgType).Inc()
}

// RecordFrameQueued counts a frame accepted by a connection queue.
func RecordFrameQueued() {
	globalManager.framesQueued.Inc()
}

// RecordFrameDropped counts a frame rejected by a connection queue.
func RecordFrameDropped() {
	globalManager.framesDropped.Inc()
}

// RecordFrameWritten counts a frame written to a socket and its latency.
func RecordFrameWritten(latencyMs float64) {
	globalManager.framesWritten.Inc()
	globalManager.writeLatency.Observe(latencyMs)
}

// RecordMalformedFrame counts a discarded inbound frame.
func RecordMalformedFrame() {
	globalManager.framesMalformed.Inc()
}

// RecordEviction counts a connection removed by the hub.
func RecordEviction(cause string) {
	globalManager.evictions.WithLabelValues(cause).Inc()
}

// RecordClientReconnect counts a scheduled client reconnect.
func RecordClientReconnect() {
	globalManager.clientReconnects.Inc()
}

// RecordClientTransition counts a client state change.
func RecordClientTransition(state string) {
	globalManager.clientTransitions.WithLabelValues(state).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
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

// SystemRefreshInterval returns the sampling interval of the global manager.
func SystemRefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
