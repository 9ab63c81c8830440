// Package telemetry exports reactive runtime activity to Prometheus and
// OpenTelemetry.
//
// Both exporters implement quark.Observer and are installed with
// quark.WithObserver:
//
//	metrics := telemetry.NewPrometheus(telemetry.WithNamespace("myapp"))
//	tracing := telemetry.NewTracing(telemetry.WithTracerName("myapp"))
//
//	rt := quark.NewRuntime(
//	    quark.WithObserver(metrics),
//	    quark.WithObserver(tracing),
//	)
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
//
// Observers are called on the runtime's goroutine. Prometheus collectors
// are safe for concurrent scraping; Tracing keeps per-flush counters and
// must be attached to a single runtime.
package telemetry
