package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for provisioning and dialog activity.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Resource metrics
	resourcesProvisioned *prometheus.CounterVec
	provisionFailures    *prometheus.CounterVec
	provisionDuration    *prometheus.HistogramVec
	resourcesManaged     *prometheus.GaugeVec

	// Dialog metrics
	dialogSessions     *prometheus.CounterVec
	dialogTurns        *prometheus.CounterVec
	slotRetries        *prometheus.CounterVec
	fulfillmentResults *prometheus.CounterVec
	activeSessions     prometheus.Gauge

	// Policy metrics
	policyViolations *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// No-op instance; all record methods nil-check
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of apply runs started",
			},
			[]string{"instance"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of apply runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of apply runs in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		resourcesProvisioned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resources_provisioned_total",
				Help:      "Total number of resources provisioned",
			},
			[]string{"kind"},
		),
		provisionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provision_failures_total",
				Help:      "Total number of resource provisioning failures",
			},
			[]string{"kind"},
		),
		provisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provision_duration_seconds",
				Help:      "Duration of resource provisioning in seconds",
				Buckets:   buckets,
			},
			[]string{"kind"},
		),
		resourcesManaged: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resources_managed",
				Help:      "Current number of managed resources",
			},
			[]string{"kind"},
		),

		dialogSessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dialog_sessions_total",
				Help:      "Total number of dialog sessions started",
			},
			[]string{"bot", "locale"},
		),
		dialogTurns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dialog_turns_total",
				Help:      "Total number of dialog turns by resulting state",
			},
			[]string{"bot", "state"},
		),
		slotRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slot_retries_total",
				Help:      "Total number of slot elicitation retries",
			},
			[]string{"bot", "slot"},
		),
		fulfillmentResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fulfillment_results_total",
				Help:      "Total number of fulfillment attempts by outcome",
			},
			[]string{"bot", "outcome"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Current number of active dialog sessions",
			},
		),

		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Total number of policy violations by severity",
			},
			[]string{"policy", "severity"},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.resourcesProvisioned,
		m.provisionFailures,
		m.provisionDuration,
		m.resourcesManaged,
		m.dialogSessions,
		m.dialogTurns,
		m.slotRetries,
		m.fulfillmentResults,
		m.activeSessions,
		m.policyViolations,
	)

	return m, nil
}

// RecordRunStarted increments the counter for started runs.
func (m *Metrics) RecordRunStarted(instance string) {
	if m.runsStarted == nil {
		return
	}
	m.runsStarted.WithLabelValues(instance).Inc()
}

// RecordRunCompleted records a completed run with its status and duration.
func (m *Metrics) RecordRunCompleted(status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordResourceProvisioned records a successfully provisioned resource.
func (m *Metrics) RecordResourceProvisioned(kind string, duration time.Duration) {
	if m.resourcesProvisioned == nil {
		return
	}
	m.resourcesProvisioned.WithLabelValues(kind).Inc()
	m.provisionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordProvisionFailure records a resource provisioning failure.
func (m *Metrics) RecordProvisionFailure(kind string) {
	if m.provisionFailures == nil {
		return
	}
	m.provisionFailures.WithLabelValues(kind).Inc()
}

// SetResourceCount sets the current count of managed resources for a kind.
func (m *Metrics) SetResourceCount(kind string, count float64) {
	if m.resourcesManaged == nil {
		return
	}
	m.resourcesManaged.WithLabelValues(kind).Set(count)
}

// RecordSessionStarted records a new dialog session.
func (m *Metrics) RecordSessionStarted(bot, locale string) {
	if m.dialogSessions == nil {
		return
	}
	m.dialogSessions.WithLabelValues(bot, locale).Inc()
	m.activeSessions.Inc()
}

// RecordSessionEnded decrements the active session gauge.
func (m *Metrics) RecordSessionEnded() {
	if m.activeSessions == nil {
		return
	}
	m.activeSessions.Dec()
}

// RecordDialogTurn records a dialog turn and its resulting state.
func (m *Metrics) RecordDialogTurn(bot, state string) {
	if m.dialogTurns == nil {
		return
	}
	m.dialogTurns.WithLabelValues(bot, state).Inc()
}

// RecordSlotRetry records a slot re-prompt.
func (m *Metrics) RecordSlotRetry(bot, slot string) {
	if m.slotRetries == nil {
		return
	}
	m.slotRetries.WithLabelValues(bot, slot).Inc()
}

// RecordFulfillment records a fulfillment attempt outcome (success, failure).
func (m *Metrics) RecordFulfillment(bot, outcome string) {
	if m.fulfillmentResults == nil {
		return
	}
	m.fulfillmentResults.WithLabelValues(bot, outcome).Inc()
}

// RecordPolicyViolation records a policy violation.
func (m *Metrics) RecordPolicyViolation(policy, severity string) {
	if m.policyViolations == nil {
		return
	}
	m.policyViolations.WithLabelValues(policy, severity).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
