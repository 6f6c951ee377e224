package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Advisor metrics
	AdvisorCalls    *prometheus.CounterVec
	AdvisorDuration prometheus.Histogram

	// Stream metrics
	StreamsStarted   prometheus.Counter
	StreamsCancelled prometheus.Counter
	StreamsCompleted prometheus.Counter

	// Store metrics
	StoreFailures  *prometheus.CounterVec
	SnapshotsSaved prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry  *prometheus.Registry
	done      chan struct{}
	closeOnce sync.Once

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the health endpoint
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	AvgDurationMS     float64 `json:"avg_duration_ms"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
	requestCount  int64
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),
		registry:  reg,
		done:      make(chan struct{}),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "droidsweep_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "droidsweep_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		AdvisorCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "droidsweep_advisor_calls_total",
				Help: "Total number of advisor backend calls",
			},
			[]string{"status"},
		),
		AdvisorDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "droidsweep_advisor_duration_seconds",
				Help:    "Advisor call duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		StreamsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "droidsweep_streams_started_total",
				Help: "Total number of reveal streams started",
			},
		),
		StreamsCancelled: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "droidsweep_streams_cancelled_total",
				Help: "Total number of reveal streams cancelled",
			},
		),
		StreamsCompleted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "droidsweep_streams_completed_total",
				Help: "Total number of reveal streams run to completion",
			},
		),

		StoreFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "droidsweep_store_failures_total",
				Help: "Total number of swallowed store failures",
			},
			[]string{"op"},
		),
		SnapshotsSaved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "droidsweep_snapshots_saved_total",
				Help: "Total number of session snapshots written",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "droidsweep_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "droidsweep_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "droidsweep_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// Handler serves this collector's registry in Prometheus format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Close stops the uptime ticker. Safe to call more than once.
func (m *Metrics) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}

// updateUptime updates the uptime metric until Close is called
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		case <-m.done:
			return
		}
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	m.snapshot.requestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordAdvisorCall records an advisor backend call
func (m *Metrics) RecordAdvisorCall(status string, duration time.Duration) {
	m.AdvisorCalls.WithLabelValues(status).Inc()
	m.AdvisorDuration.Observe(duration.Seconds())
}

// RecordStoreFailure is wired as the store's failure hook
func (m *Metrics) RecordStoreFailure(op, key string) {
	m.StoreFailures.WithLabelValues(op).Inc()
}

// ConnectionOpened tracks a new WebSocket connection
func (m *Metrics) ConnectionOpened() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// ConnectionClosed tracks a closed WebSocket connection
func (m *Metrics) ConnectionClosed() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// GetSnapshot returns current values for the health endpoint
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	if snap.requestCount > 0 {
		snap.AvgDurationMS = snap.totalDuration / float64(snap.requestCount) * 1000
	}
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
