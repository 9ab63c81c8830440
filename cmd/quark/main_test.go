package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/quark/internal/config"
	"github.com/vango-dev/quark/internal/errors"
	"github.com/vango-dev/quark/pkg/quark"
)

// execute runs the CLI with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var qe *errors.QuarkError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, code, qe.Code)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
	assert.Contains(t, out, "Go version:")
}

func TestConfigShowDefaults(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "config", "show", "-C", dir)
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, config.DefaultMaxFlushTasks, cfg.Runtime.MaxFlushTasks)
	assert.Equal(t, config.DefaultDevtoolsAddr, cfg.Devtools.Addr)

	out, err = execute(t, "config", "show", "-C", dir, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "maxFlushTasks: 100000")
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "config", "init", "-C", dir, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, config.YAMLFileName)

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, config.YAMLFileName), cfg.Path())

	_, err = execute(t, "config", "init", "-C", dir)
	requireCode(t, err, "Q200")

	_, err = execute(t, "config", "init", "-C", dir, "--force")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, config.JSONFileName))
}

func TestConfigUnknownFormat(t *testing.T) {
	_, err := execute(t, "config", "show", "--format", "toml", "-C", t.TempDir())
	requireCode(t, err, "Q200")
}

func TestConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quark.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log": {"level": "loud"}}`), 0644))

	_, err := execute(t, "config", "show", "-c", path)
	requireCode(t, err, "Q102")
}

func TestBenchList(t *testing.T) {
	out, err := execute(t, "bench", "--list")
	require.NoError(t, err)
	for _, s := range scenarios {
		assert.Contains(t, out, s.name)
	}
}

func TestBenchScenarios(t *testing.T) {
	out, err := execute(t, "bench", "-C", t.TempDir(), "--size", "4", "--iterations", "10", "--json")
	require.NoError(t, err)

	var results []benchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, len(scenarios))

	byName := make(map[string]benchResult)
	for _, r := range results {
		byName[r.Scenario] = r
		assert.Zero(t, r.Errors, r.Scenario)
	}

	// One flush per write, each running one token per effect.
	fanout := byName["fanout"]
	assert.Equal(t, uint64(10), fanout.Writes)
	assert.Equal(t, uint64(10), fanout.Flushes)
	assert.Equal(t, uint64(40), fanout.FlushTasks)
	assert.Equal(t, uint64(4+40), fanout.EffectRuns)

	// Each read re-evaluates the whole chain.
	chain := byName["chain"]
	assert.Equal(t, uint64(4*10), chain.Evaluations)
	assert.Zero(t, chain.Flushes)

	// The join runs once per write however many branches changed.
	diamond := byName["diamond"]
	assert.Equal(t, uint64(1+10), diamond.EffectRuns)
	assert.Equal(t, uint64(10), diamond.Flushes)

	signal := byName["signal"]
	assert.Equal(t, uint64(40), signal.FlushTasks)

	scope := byName["scope"]
	assert.Equal(t, uint64(10*(4+4)), scope.EffectRuns)
}

func TestBenchTable(t *testing.T) {
	out, err := execute(t, "bench", "-C", t.TempDir(), "-s", "chain", "-n", "2", "-i", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "SCENARIO"))
	assert.True(t, strings.HasPrefix(lines[1], "chain"))
}

func TestBenchErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "bench", "-C", dir, "-s", "nope")
	requireCode(t, err, "Q201")

	_, err = execute(t, "bench", "-C", dir, "--size", "0")
	requireCode(t, err, "Q200")
}

func TestBenchFlushBudget(t *testing.T) {
	cfg := config.New()
	cfg.Runtime.MaxFlushTasks = 3

	prev := quark.SetErrorReporter(func(error) {})
	defer quark.SetErrorReporter(prev)

	s, ok := findScenario("fanout")
	require.True(t, ok)
	r := runScenario(s, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), 4, 1)

	// Four tasks against a budget of three: the last one moves to a second
	// flush and a storm is reported.
	assert.Equal(t, uint64(2), r.Flushes)
	assert.Equal(t, uint64(4), r.FlushTasks)
	assert.Equal(t, uint64(1), r.Errors)
}

func TestListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = listen(ln.Addr().String())
	requireCode(t, err, "Q202")
}

func TestRunInspect(t *testing.T) {
	cfg := config.New()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- runInspect(ctx, cfg, logger, ln, inspectOptions{demo: true, interval: 10 * time.Millisecond})
	}()

	var nodes []quark.NodeInfo
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/nodes")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		nodes = nil
		if json.NewDecoder(resp.Body).Decode(&nodes) != nil {
			return false
		}
		return len(nodes) == 3
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "demo.count", nodes[0].Label)

	assert.Eventually(t, func() bool {
		resp, err := http.Get(base + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return strings.Contains(string(body), `quark_atom_writes_total{label="demo.count"}`)
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("inspector did not shut down")
	}
}
