package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics (status server)
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Stage metrics
	StageTransitions  *prometheus.CounterVec
	StageReadySeconds *prometheus.HistogramVec
	StageFailures     *prometheus.CounterVec
	ProcessesRunning  prometheus.Gauge
	StackReady        prometheus.Gauge

	// Event stream metrics
	WSConnections prometheus.Gauge
	WSEvents      prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for JSON API
type Snapshot struct {
	TotalRequests    int64
	TotalErrors      int64
	Transitions      int64
	Failures         int64
	RunningProcesses int64
	StackReady       bool
	UptimeSeconds    float64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webdesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		// Stage metrics
		StageTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webdesk_stage_transitions_total",
				Help: "Total number of stage state transitions",
			},
			[]string{"stage", "state"},
		),
		StageReadySeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webdesk_stage_ready_seconds",
				Help:    "Time from stage launch to readiness in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
			},
			[]string{"stage"},
		),
		StageFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webdesk_stage_failures_total",
				Help: "Total number of stage failures by class",
			},
			[]string{"stage", "class"},
		),
		ProcessesRunning: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "webdesk_processes_running",
				Help: "Number of managed processes currently running",
			},
		),
		StackReady: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "webdesk_stack_ready",
				Help: "Whether the full stack is ready (1) or not (0)",
			},
		),

		// Event stream metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "webdesk_ws_connections",
				Help: "Number of active WebSocket event subscribers",
			},
		),
		WSEvents: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "webdesk_ws_events_total",
				Help: "Total number of events pushed to WebSocket subscribers",
			},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "webdesk_uptime_seconds",
				Help: "Supervisor uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordTransition records a stage state transition
func (m *Metrics) RecordTransition(stage, state string) {
	m.StageTransitions.WithLabelValues(stage, state).Inc()

	m.mu.Lock()
	m.snapshot.Transitions++
	m.mu.Unlock()
}

// RecordReady records how long a stage took to become ready
func (m *Metrics) RecordReady(stage string, elapsed time.Duration) {
	m.StageReadySeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RecordFailure records a stage failure by class
func (m *Metrics) RecordFailure(stage, class string) {
	m.StageFailures.WithLabelValues(stage, class).Inc()

	m.mu.Lock()
	m.snapshot.Failures++
	m.mu.Unlock()
}

// SetProcessesRunning sets the number of running managed processes
func (m *Metrics) SetProcessesRunning(count int) {
	m.ProcessesRunning.Set(float64(count))

	m.mu.Lock()
	m.snapshot.RunningProcesses = int64(count)
	m.mu.Unlock()
}

// SetStackReady marks whether the full stack is ready
func (m *Metrics) SetStackReady(ready bool) {
	v := 0.0
	if ready {
		v = 1.0
	}
	m.StackReady.Set(v)

	m.mu.Lock()
	m.snapshot.StackReady = ready
	m.mu.Unlock()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// IncWSEvents increments the pushed event counter
func (m *Metrics) IncWSEvents() {
	m.WSEvents.Inc()
}
