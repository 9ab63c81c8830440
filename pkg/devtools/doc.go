// Package devtools serves a live inspector for a quark runtime.
//
// The Inspector is a quark.Observer. Install it when creating the loop,
// then attach the loop so the inspector can snapshot the node graph:
//
//	insp := devtools.New(devtools.WithRateLimit(50, 100))
//	loop := quark.NewLoop(quark.WithObserver(insp))
//	insp.Attach(loop)
//
//	go loop.Run(ctx)
//	go insp.Run(ctx)
//	http.ListenAndServe("localhost:7070", insp.Handler())
//
// # Endpoints
//
//   - GET /nodes: JSON snapshot of live atoms and computes
//   - GET /events: WebSocket stream of runtime events
//   - GET /clients: connected stream clients and dropped event count
//   - GET /metrics: Prometheus metrics, when a gatherer is configured
//   - GET /healthz: liveness probe
//
// Streamed events are rate limited so a busy runtime cannot flood
// inspector clients. Events over the limit are counted and the count is
// reported on the next event that goes out. Errors are never rate limited.
package devtools
