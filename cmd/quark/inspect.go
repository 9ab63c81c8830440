package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/quark/internal/config"
	"github.com/vango-dev/quark/internal/errors"
	"github.com/vango-dev/quark/pkg/devtools"
	"github.com/vango-dev/quark/pkg/quark"
	"github.com/vango-dev/quark/pkg/telemetry"
)

const shutdownTimeout = 5 * time.Second

type inspectOptions struct {
	addr     string
	demo     bool
	interval time.Duration
}

func inspectCmd(flags *globalFlags) *cobra.Command {
	opts := inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Serve the devtools inspector",
		Long: `Start a runtime loop with the devtools inspector attached.

Endpoints:
  GET /nodes     live atoms and computes
  GET /events    WebSocket stream of graph events
  GET /clients   connected stream clients
  GET /metrics   Prometheus metrics (when enabled)
  GET /healthz   liveness

With --demo a small counter graph is created and updated on a timer so
the stream has something to show.

Examples:
  quark inspect --demo
  quark inspect --addr=127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Devtools.Addr = opts.addr
			}
			logger := setupLogger(cfg, cmd.ErrOrStderr())

			ln, err := listen(cfg.Devtools.Addr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			printBanner(out)
			success(out, "Inspector listening on http://%s", ln.Addr())
			info(out, "Stream events from ws://%s/events", ln.Addr())

			return runInspect(ctx, cfg, logger, ln, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "Address to listen on (default from config)")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "Drive a demo graph")
	cmd.Flags().DurationVar(&opts.interval, "interval", time.Second, "Demo update interval")

	return cmd
}

// listen opens the inspector listener.
func listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.New("Q202").
			Wrap(err).
			WithSuggestion("Pick another address with --addr or devtools.addr")
	}
	return ln, nil
}

// runInspect serves the inspector on ln until ctx is done.
func runInspect(ctx context.Context, cfg *config.Config, logger *slog.Logger, ln net.Listener, opts inspectOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inspOpts := []devtools.Option{
		devtools.WithRateLimit(cfg.Devtools.MaxEventsPerSecond, cfg.Devtools.Burst),
		devtools.WithLogger(logger),
	}
	runtimeOpts := append(cfg.RuntimeOptions(), quark.WithLogger(logger))

	if cfg.Telemetry.Prometheus.Enabled {
		registry := prometheus.NewRegistry()
		metrics := telemetry.NewPrometheus(
			telemetry.WithNamespace(cfg.Telemetry.Prometheus.Namespace),
			telemetry.WithRegistry(registry),
		)
		inspOpts = append(inspOpts, devtools.WithGatherer(registry))
		runtimeOpts = append(runtimeOpts, quark.WithObserver(metrics))
	}
	if cfg.Telemetry.Tracing.Enabled {
		runtimeOpts = append(runtimeOpts, quark.WithObserver(
			telemetry.NewTracing(telemetry.WithTracerName(cfg.Telemetry.Tracing.TracerName)),
		))
	}

	insp := devtools.New(inspOpts...)
	loop := quark.NewLoop(append(runtimeOpts, quark.WithObserver(insp))...)
	insp.Attach(loop)

	go func() { _ = loop.Run(ctx) }()
	go func() { _ = insp.Run(ctx) }()

	srv := &http.Server{
		Handler:           insp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	if opts.demo {
		go runDemo(ctx, loop, logger, opts.interval)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	logger.Info("inspect: shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	cancel()
	<-loop.Done()
	return err
}

// demoGraph is the graph driven by --demo.
type demoGraph struct {
	count *quark.Atom[int]
}

// runDemo builds a counter graph on loop and increments it every interval.
func runDemo(ctx context.Context, loop *quark.Loop, logger *slog.Logger, interval time.Duration) {
	g, err := quark.Call(ctx, loop, func(rt *quark.Runtime) (*demoGraph, error) {
		scope := rt.NewScope()
		count := quark.ScopeAtom(scope, 0, quark.Label("demo.count"))
		double := quark.ScopeCompute(scope, func() int { return count.Get() * 2 }, quark.Label("demo.double"))
		parity := quark.ScopeCompute(scope, func() string {
			if count.Get()%2 == 0 {
				return "even"
			}
			return "odd"
		}, quark.Label("demo.parity"))
		quark.ScopeEffect(scope, double, func(v int) {
			logger.Debug("demo: double changed", slog.Int("value", v))
		}, quark.EffectLabel("demo.log"))
		quark.ScopeEffect(scope, parity, func(string) {}, quark.EffectLabel("demo.parity"))
		return &demoGraph{count: count}, nil
	})
	if err != nil {
		logger.Warn("demo: setup failed", slog.String("error", err.Error()))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := quark.Call(ctx, loop, func(*quark.Runtime) (struct{}, error) {
				g.count.Update(func(n int) int { return n + 1 })
				return struct{}{}, nil
			})
			if err != nil {
				if !stderrors.Is(err, context.Canceled) {
					logger.Warn("demo: update failed", slog.String("error", errors.FromRuntime(err).Error()))
				}
				return
			}
		}
	}
}
