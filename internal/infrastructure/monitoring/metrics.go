package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Lifecycle metrics
	LifecycleRequests *prometheus.CounterVec
	LifecycleDuration *prometheus.HistogramVec
	LocalApps         prometheus.Gauge
	Activations       *prometheus.CounterVec
	ReclaimedDirs     prometheus.Counter

	// Networked store metrics
	StoreCalls    *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec

	// IPC metrics
	TicketsPending  prometheus.Gauge
	TicketsRedeemed *prometheus.CounterVec

	startTime time.Time

	// Snapshot for the health endpoint
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON health API
type Snapshot struct {
	TotalRequests  int64   `json:"total_requests"`
	FailedRequests int64   `json:"failed_requests"`
	LocalApps      int64   `json:"local_apps"`
	Activations    int64   `json:"activations"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector registered with reg.
// Tests pass prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_http_requests_total",
				Help: "Total number of control API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_http_request_duration_seconds",
				Help:    "Control API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		LifecycleRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_lifecycle_requests_total",
				Help: "Total number of lifecycle requests processed by the actor",
			},
			[]string{"op", "outcome"},
		),
		LifecycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_lifecycle_duration_seconds",
				Help:    "Lifecycle request processing time in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"op"},
		),
		LocalApps: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_local_apps",
				Help: "Number of applications in the local cache",
			},
		),
		Activations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_activations_total",
				Help: "Total number of activation requests by outcome",
			},
			[]string{"outcome"},
		),
		ReclaimedDirs: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "launcher_root_dirs_reclaimed_total",
				Help: "Total number of shared root directories deleted",
			},
		),

		StoreCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_store_calls_total",
				Help: "Total number of networked store calls",
			},
			[]string{"op", "status"},
		),
		StoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_store_duration_seconds",
				Help:    "Networked store call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"op"},
		),

		TicketsPending: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_ipc_tickets_pending",
				Help: "Number of activation tickets waiting to be redeemed",
			},
		),
		TicketsRedeemed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_ipc_ticket_redemptions_total",
				Help: "Total number of ticket redemption attempts by result",
			},
			[]string{"result"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "launcher_uptime_seconds",
			Help: "Launcher uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records a control API request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLifecycle records a processed lifecycle request
func (m *Metrics) RecordLifecycle(op, outcome string, duration time.Duration) {
	m.LifecycleRequests.WithLabelValues(op, outcome).Inc()
	m.LifecycleDuration.WithLabelValues(op).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if outcome != OutcomeOK {
		m.snapshot.FailedRequests++
	}
	m.mu.Unlock()
}

// RecordActivation records an activation outcome
func (m *Metrics) RecordActivation(outcome string) {
	m.Activations.WithLabelValues(outcome).Inc()
	m.mu.Lock()
	m.snapshot.Activations++
	m.mu.Unlock()
}

// RecordReclaim records a deleted root directory
func (m *Metrics) RecordReclaim() {
	m.ReclaimedDirs.Inc()
}

// RecordStoreCall records a networked store call
func (m *Metrics) RecordStoreCall(op, status string, duration time.Duration) {
	m.StoreCalls.WithLabelValues(op, status).Inc()
	m.StoreDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SetLocalApps sets the number of locally registered applications
func (m *Metrics) SetLocalApps(count int) {
	m.LocalApps.Set(float64(count))
	m.mu.Lock()
	m.snapshot.LocalApps = int64(count)
	m.mu.Unlock()
}

// SetTicketsPending sets the number of unredeemed activation tickets
func (m *Metrics) SetTicketsPending(count int) {
	m.TicketsPending.Set(float64(count))
}

// RecordRedemption records a ticket redemption attempt
func (m *Metrics) RecordRedemption(result string) {
	m.TicketsRedeemed.WithLabelValues(result).Inc()
}

// Snapshot returns current values for the health endpoint
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
