package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/quark/pkg/quark"
)

// PrometheusConfig configures the Prometheus observer.
type PrometheusConfig struct {
	// Namespace is the metrics namespace (default: "quark").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// PrometheusOption configures the Prometheus observer.
type PrometheusOption func(*PrometheusConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) PrometheusOption {
	return func(c *PrometheusConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) PrometheusOption {
	return func(c *PrometheusConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) PrometheusOption {
	return func(c *PrometheusConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the flush duration histogram buckets.
func WithBuckets(buckets []float64) PrometheusOption {
	return func(c *PrometheusConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) PrometheusOption {
	return func(c *PrometheusConfig) {
		c.Registry = registry
	}
}

func defaultPrometheusConfig() PrometheusConfig {
	return PrometheusConfig{
		Namespace: "quark",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Prometheus is a quark.Observer recording runtime activity as Prometheus
// metrics.
//
// Metrics collected:
//   - quark_atom_writes_total: accepted atom writes by node label
//   - quark_compute_evaluations_total: compute function runs by node label
//   - quark_effect_runs_total: effect runs by mode and outcome
//   - quark_flushes_total: completed scheduler flushes
//   - quark_flush_tasks: histogram of tasks run per flush
//   - quark_flush_duration_seconds: histogram of flush wall time
//   - quark_flush_deferred_tasks_total: tasks pushed to a later flush
//   - quark_errors_total: reported errors by kind
//
// Node labels become metric labels, so keep them low-cardinality.
type Prometheus struct {
	atomWrites         *prometheus.CounterVec
	computeEvaluations *prometheus.CounterVec
	effectRuns         *prometheus.CounterVec
	flushes            prometheus.Counter
	flushTasks         prometheus.Histogram
	flushDuration      prometheus.Histogram
	deferredTasks      prometheus.Counter
	errors             *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with the
// configured registry. It panics if the collectors are already registered,
// like promauto.
func NewPrometheus(opts ...PrometheusOption) *Prometheus {
	config := defaultPrometheusConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Prometheus{
		atomWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "atom_writes_total",
			Help:        "Total number of accepted atom writes",
			ConstLabels: config.ConstLabels,
		}, []string{"label"}),

		computeEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "compute_evaluations_total",
			Help:        "Total number of compute function evaluations",
			ConstLabels: config.ConstLabels,
		}, []string{"label"}),

		effectRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect runs by mode and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"mode", "outcome"}),

		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of scheduler flushes",
			ConstLabels: config.ConstLabels,
		}),

		flushTasks: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_tasks",
			Help:        "Number of tasks run per scheduler flush",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(1, 4, 10), // 1 to 262144
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Scheduler flush duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		deferredTasks: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_deferred_tasks_total",
			Help:        "Total number of tasks deferred because a flush hit its task budget",
			ConstLabels: config.ConstLabels,
		}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "errors_total",
			Help:        "Total number of errors reported by the runtime",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
	}
}

// AtomWritten implements quark.Observer.
func (p *Prometheus) AtomWritten(_ int64, label string) {
	p.atomWrites.WithLabelValues(label).Inc()
}

// ComputeEvaluated implements quark.Observer.
func (p *Prometheus) ComputeEvaluated(_ int64, label string) {
	p.computeEvaluations.WithLabelValues(label).Inc()
}

// EffectRan implements quark.Observer.
func (p *Prometheus) EffectRan(stats quark.EffectStats) {
	p.effectRuns.WithLabelValues(effectMode(stats), effectOutcome(stats)).Inc()
}

// FlushCompleted implements quark.Observer.
func (p *Prometheus) FlushCompleted(stats quark.FlushStats) {
	p.flushes.Inc()
	p.flushTasks.Observe(float64(stats.Tasks))
	p.flushDuration.Observe(stats.Duration.Seconds())
	if stats.Deferred > 0 {
		p.deferredTasks.Add(float64(stats.Deferred))
	}
}

// ErrorReported implements quark.Observer.
func (p *Prometheus) ErrorReported(err error) {
	p.errors.WithLabelValues(ErrorKind(err)).Inc()
}

var _ quark.Observer = (*Prometheus)(nil)
