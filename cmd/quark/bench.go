package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/quark/internal/config"
	"github.com/vango-dev/quark/internal/errors"
	"github.com/vango-dev/quark/pkg/quark"
)

// scenario is one benchmark workload. run builds a graph of size nodes on
// rt and drives it for the given number of iterations.
type scenario struct {
	name        string
	description string
	run         func(rt *quark.Runtime, size, iterations int)
}

var scenarios = []scenario{
	{"fanout", "one atom feeding size computes, each with a batched effect", benchFanout},
	{"chain", "a chain of size computes read from the tail after each write", benchChain},
	{"diamond", "size branches joined by one compute with an effect", benchDiamond},
	{"signal", "a batched signal with size listeners", benchSignal},
	{"scope", "create, update and destroy a scope of size effects", benchScope},
}

func findScenario(name string) (scenario, bool) {
	for _, s := range scenarios {
		if s.name == name {
			return s, true
		}
	}
	return scenario{}, false
}

// benchResult is the outcome of one scenario.
type benchResult struct {
	Scenario    string        `json:"scenario"`
	Size        int           `json:"size"`
	Iterations  int           `json:"iterations"`
	Duration    time.Duration `json:"durationNs"`
	NsPerOp     int64         `json:"nsPerOp"`
	Writes      uint64        `json:"writes"`
	Evaluations uint64        `json:"evaluations"`
	EffectRuns  uint64        `json:"effectRuns"`
	Skipped     uint64        `json:"effectsSkipped"`
	Flushes     uint64        `json:"flushes"`
	FlushTasks  uint64        `json:"flushTasks"`
	Errors      uint64        `json:"errors"`
}

// benchObserver counts runtime events for one scenario.
type benchObserver struct {
	quark.NoopObserver
	writes, evals, runs, skipped, flushes, tasks, errors uint64
}

func (o *benchObserver) AtomWritten(int64, string) {
	o.writes++
}

func (o *benchObserver) ComputeEvaluated(int64, string) {
	o.evals++
}

func (o *benchObserver) ErrorReported(error) {
	o.errors++
}

func (o *benchObserver) EffectRan(s quark.EffectStats) {
	if s.Skipped {
		o.skipped++
		return
	}
	o.runs++
}

func (o *benchObserver) FlushCompleted(s quark.FlushStats) {
	o.flushes++
	o.tasks += uint64(s.Tasks)
}

type benchOptions struct {
	scenarios  []string
	size       int
	iterations int
	jsonOutput bool
	list       bool
}

func benchCmd(flags *globalFlags) *cobra.Command {
	opts := benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the reactive runtime",
		Long: `Run propagation benchmarks against the reactive runtime.

Runtime limits come from the configuration file, so a flush budget or
re-run limit can be checked against a realistic workload.

Examples:
  quark bench
  quark bench -s fanout,diamond --size=1000
  quark bench --iterations=10000 --json
  quark bench --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if opts.list {
				listScenarios(out)
				return nil
			}
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg, cmd.ErrOrStderr())
			return runBench(out, cfg, logger, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.scenarios, "scenario", "s", nil, "Scenarios to run (default: all)")
	cmd.Flags().IntVarP(&opts.size, "size", "n", 100, "Number of nodes per scenario")
	cmd.Flags().IntVarP(&opts.iterations, "iterations", "i", 1000, "Number of writes per scenario")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&opts.list, "list", false, "List available scenarios")

	return cmd
}

func listScenarios(w io.Writer) {
	for _, s := range scenarios {
		fmt.Fprintf(w, "  %-10s %s\n", s.name, s.description)
	}
}

func runBench(w io.Writer, cfg *config.Config, logger *slog.Logger, opts benchOptions) error {
	if opts.size <= 0 || opts.iterations <= 0 {
		return errors.New("Q200").
			WithDetail(fmt.Sprintf("--size and --iterations must be positive, got %d and %d", opts.size, opts.iterations))
	}

	selected := scenarios
	if len(opts.scenarios) > 0 {
		selected = nil
		for _, name := range opts.scenarios {
			s, ok := findScenario(strings.TrimSpace(name))
			if !ok {
				return errors.New("Q201").
					WithDetail("Unknown scenario " + name).
					WithSuggestion("Run quark bench --list to see the available scenarios")
			}
			selected = append(selected, s)
		}
	}

	results := make([]benchResult, 0, len(selected))
	for _, s := range selected {
		logger.Debug("bench: running scenario", slog.String("scenario", s.name))
		results = append(results, runScenario(s, cfg, logger, opts.size, opts.iterations))
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printResults(w, results)
	return nil
}

func runScenario(s scenario, cfg *config.Config, logger *slog.Logger, size, iterations int) benchResult {
	obs := &benchObserver{}
	rt := quark.NewRuntime(append(cfg.RuntimeOptions(),
		quark.WithLogger(logger),
		quark.WithObserver(obs),
	)...)

	start := time.Now()
	s.run(rt, size, iterations)
	// Work deferred by the flush budget still counts.
	for rt.Scheduler().Pending() > 0 {
		rt.Flush()
	}
	elapsed := time.Since(start)

	return benchResult{
		Scenario:    s.name,
		Size:        size,
		Iterations:  iterations,
		Duration:    elapsed,
		NsPerOp:     elapsed.Nanoseconds() / int64(iterations),
		Writes:      obs.writes,
		Evaluations: obs.evals,
		EffectRuns:  obs.runs,
		Skipped:     obs.skipped,
		Flushes:     obs.flushes,
		FlushTasks:  obs.tasks,
		Errors:      obs.errors,
	}
}

func printResults(w io.Writer, results []benchResult) {
	fmt.Fprintf(w, "%-10s %8s %10s %12s %10s %12s %10s %10s %8s\n",
		"SCENARIO", "SIZE", "ITERS", "NS/OP", "WRITES", "EVALS", "EFFECTS", "FLUSHES", "ERRORS")
	for _, r := range results {
		fmt.Fprintf(w, "%-10s %8d %10d %12d %10d %12d %10d %10d %8d\n",
			r.Scenario, r.Size, r.Iterations, r.NsPerOp, r.Writes, r.Evaluations, r.EffectRuns, r.Flushes, r.Errors)
	}
}

func benchFanout(rt *quark.Runtime, size, iterations int) {
	src := quark.NewAtom(rt, 0, quark.Label("fanout.src"))
	for i := 0; i < size; i++ {
		c := quark.NewCompute(rt, func() int { return src.Get() + i })
		quark.NewEffect(rt, c, func(int) {})
	}
	for i := 1; i <= iterations; i++ {
		rt.Turn(func() { src.Set(i) })
	}
}

func benchChain(rt *quark.Runtime, size, iterations int) {
	head := quark.NewAtom(rt, 0, quark.Label("chain.head"))
	tail := head.Get
	for i := 0; i < size; i++ {
		prev := tail
		c := quark.NewCompute(rt, func() int { return prev() + 1 })
		tail = c.Get
	}
	for i := 1; i <= iterations; i++ {
		head.Set(i)
		_ = tail()
	}
}

func benchDiamond(rt *quark.Runtime, size, iterations int) {
	src := quark.NewAtom(rt, 0, quark.Label("diamond.src"))
	branches := make([]*quark.Compute[int], size)
	for i := range branches {
		branches[i] = quark.NewCompute(rt, func() int { return src.Get() * 2 })
	}
	sum := quark.NewCompute(rt, func() int {
		total := 0
		for _, b := range branches {
			total += b.Get()
		}
		return total
	}, quark.Label("diamond.sum"))
	quark.NewEffect(rt, sum, func(int) {})

	for i := 1; i <= iterations; i++ {
		rt.Turn(func() { src.Set(i) })
	}
}

func benchSignal(rt *quark.Runtime, size, iterations int) {
	sig := quark.NewSignal[int](rt, quark.Label("signal"))
	for i := 0; i < size; i++ {
		sig.Subscribe(func(int) {})
	}
	for i := 0; i < iterations; i++ {
		rt.Turn(func() { sig.Emit(i) })
	}
}

func benchScope(rt *quark.Runtime, size, iterations int) {
	for i := 0; i < iterations; i++ {
		s := rt.NewScope()
		a := quark.ScopeAtom(s, i)
		for j := 0; j < size; j++ {
			quark.ScopeEffect(s, a, func(int) {})
		}
		rt.Turn(func() { a.Set(i + 1) })
		s.Destroy()
	}
}
