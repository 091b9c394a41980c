package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the backend selection engine.
type Metrics struct {
	config MetricsConfig

	// Probe metrics
	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec

	// Selection run metrics
	selectionsTotal   *prometheus.CounterVec
	selectionDuration *prometheus.HistogramVec

	// Initialization metrics
	initAttempts *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec

	// Lifecycle metrics
	hotReloads *prometheus.CounterVec
	shutdowns  prometheus.Counter

	// Error metrics
	errorsByClass *prometheus.CounterVec

	// System metrics
	activeFamily    *prometheus.GaugeVec
	capabilityScore *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Probe metrics
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Total number of backend probes by family and outcome",
			},
			[]string{"family", "outcome"},
		),
		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "probe_duration_seconds",
				Help:      "Duration of backend probes in seconds",
				Buckets:   buckets,
			},
			[]string{"family"},
		),

		// Selection run metrics
		selectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "selections_total",
				Help:      "Total number of selection runs by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		selectionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "selection_duration_seconds",
				Help:      "End-to-end duration of selection runs in seconds",
				Buckets:   buckets,
			},
			[]string{"strategy"},
		),

		// Initialization metrics
		initAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "init_attempts_total",
				Help:      "Total number of backend initialization attempts",
			},
			[]string{"family", "outcome"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Total number of fallback transitions between families",
			},
			[]string{"from", "to"},
		),

		// Lifecycle metrics
		hotReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hot_reloads_total",
				Help:      "Total number of hot reloads by outcome",
			},
			[]string{"outcome"},
		),
		shutdowns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "shutdowns_total",
				Help:      "Total number of engine shutdowns",
			},
		),

		// Error metrics
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),

		// System metrics
		activeFamily: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_family",
				Help:      "Currently active backend family (1=active, 0=inactive)",
			},
			[]string{"family"},
		),
		capabilityScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "capability_score",
				Help:      "Last computed capability score per family",
			},
			[]string{"family"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.probesTotal,
		m.probeDuration,
		m.selectionsTotal,
		m.selectionDuration,
		m.initAttempts,
		m.fallbacks,
		m.hotReloads,
		m.shutdowns,
		m.errorsByClass,
		m.activeFamily,
		m.capabilityScore,
	)

	return m, nil
}

// Probe Metrics

// RecordProbe records one completed probe with its outcome and duration.
func (m *Metrics) RecordProbe(family, outcome string, duration time.Duration) {
	if m.probesTotal == nil {
		return
	}
	m.probesTotal.WithLabelValues(family, outcome).Inc()
	m.probeDuration.WithLabelValues(family).Observe(duration.Seconds())
}

// SetCapabilityScore records the last computed total score for a family.
func (m *Metrics) SetCapabilityScore(family string, score float64) {
	if m.capabilityScore == nil {
		return
	}
	m.capabilityScore.WithLabelValues(family).Set(score)
}

// Selection Metrics

// RecordSelection records a completed selection run.
func (m *Metrics) RecordSelection(strategy, outcome string, duration time.Duration) {
	if m.selectionsTotal == nil {
		return
	}
	m.selectionsTotal.WithLabelValues(strategy, outcome).Inc()
	m.selectionDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// Initialization Metrics

// RecordInitAttempt records one backend initialization attempt.
func (m *Metrics) RecordInitAttempt(family, outcome string) {
	if m.initAttempts == nil {
		return
	}
	m.initAttempts.WithLabelValues(family, outcome).Inc()
}

// RecordFallback records a fallback transition from one family to the next.
func (m *Metrics) RecordFallback(from, to string) {
	if m.fallbacks == nil {
		return
	}
	m.fallbacks.WithLabelValues(from, to).Inc()
}

// Lifecycle Metrics

// RecordHotReload records a hot reload with its outcome.
func (m *Metrics) RecordHotReload(outcome string) {
	if m.hotReloads == nil {
		return
	}
	m.hotReloads.WithLabelValues(outcome).Inc()
}

// RecordShutdown records an engine shutdown.
func (m *Metrics) RecordShutdown() {
	if m.shutdowns == nil {
		return
	}
	m.shutdowns.Inc()
}

// SetActiveFamily marks one family active and clears all others.
func (m *Metrics) SetActiveFamily(family string, families []string) {
	if m.activeFamily == nil {
		return
	}
	for _, f := range families {
		value := 0.0
		if f == family {
			value = 1.0
		}
		m.activeFamily.WithLabelValues(f).Set(value)
	}
}

// Error Metrics

// RecordError records an error by class.
func (m *Metrics) RecordError(errorClass string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
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

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
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
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
