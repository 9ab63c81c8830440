package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/quark/pkg/quark"
)

// Default tracer name for quark runtimes.
const defaultTracerName = "github.com/vango-dev/quark"

// TracingConfig configures the OpenTelemetry observer.
type TracingConfig struct {
	// TracerName is the name of the tracer.
	TracerName string

	// Provider supplies the tracer. Default: the global provider.
	Provider trace.TracerProvider

	// Context is the parent context for every span. Default:
	// context.Background().
	Context context.Context

	// SkipEmptyFlushes suppresses spans for flushes that ran no tasks.
	SkipEmptyFlushes bool
}

// TracingOption configures the OpenTelemetry observer.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.Provider = tp
	}
}

// WithParentContext sets the context spans are started from.
func WithParentContext(ctx context.Context) TracingOption {
	return func(c *TracingConfig) {
		c.Context = ctx
	}
}

// WithSkipEmptyFlushes enables or disables spans for empty flushes.
func WithSkipEmptyFlushes(skip bool) TracingOption {
	return func(c *TracingConfig) {
		c.SkipEmptyFlushes = skip
	}
}

// Tracing is a quark.Observer emitting OpenTelemetry spans.
//
// Each scheduler flush becomes a "quark.flush" span carrying the task
// counts and the number of atom writes, compute evaluations and effect runs
// observed since the previous flush. Each reported error becomes a
// "quark.error" span with the error recorded and the status set to Error.
//
// A Tracing must be attached to a single runtime.
type Tracing struct {
	config TracingConfig
	tracer trace.Tracer

	// Counters accumulated between flushes.
	writes  int
	evals   int
	ran     int
	skipped int
	failed  int
}

// NewTracing creates a tracing observer. The tracer is resolved from the
// configured provider, or the global one.
//
// Configure the global provider in main() before creating runtimes:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func NewTracing(opts ...TracingOption) *Tracing {
	config := TracingConfig{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Context == nil {
		config.Context = context.Background()
	}

	var tracer trace.Tracer
	if config.Provider != nil {
		tracer = config.Provider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}
	return &Tracing{config: config, tracer: tracer}
}

// AtomWritten implements quark.Observer.
func (t *Tracing) AtomWritten(int64, string) {
	t.writes++
}

// ComputeEvaluated implements quark.Observer.
func (t *Tracing) ComputeEvaluated(int64, string) {
	t.evals++
}

// EffectRan implements quark.Observer.
func (t *Tracing) EffectRan(stats quark.EffectStats) {
	switch effectOutcome(stats) {
	case "failed":
		t.failed++
	case "skipped":
		t.skipped++
	default:
		t.ran++
	}
}

// FlushCompleted implements quark.Observer.
func (t *Tracing) FlushCompleted(stats quark.FlushStats) {
	if t.config.SkipEmptyFlushes && stats.Tasks == 0 {
		return
	}

	end := time.Now()
	_, span := t.tracer.Start(t.config.Context, "quark.flush",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(end.Add(-stats.Duration)),
		trace.WithAttributes(
			attribute.Int("quark.flush.tasks", stats.Tasks),
			attribute.Int("quark.flush.deferred", stats.Deferred),
			attribute.Int("quark.atom.writes", t.writes),
			attribute.Int("quark.compute.evaluations", t.evals),
			attribute.Int("quark.effect.ran", t.ran),
			attribute.Int("quark.effect.skipped", t.skipped),
			attribute.Int("quark.effect.failed", t.failed),
		),
	)
	if stats.Deferred > 0 {
		span.SetStatus(codes.Error, "flush task budget exceeded")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(end))

	t.writes, t.evals, t.ran, t.skipped, t.failed = 0, 0, 0, 0, 0
}

// ErrorReported implements quark.Observer.
func (t *Tracing) ErrorReported(err error) {
	_, span := t.tracer.Start(t.config.Context, "quark.error",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("quark.error.kind", ErrorKind(err))),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

var _ quark.Observer = (*Tracing)(nil)
