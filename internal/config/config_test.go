package config

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/quark/internal/errors"
	"github.com/vango-dev/quark/pkg/quark"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Runtime.MaxFlushTasks != DefaultMaxFlushTasks {
		t.Errorf("Runtime.MaxFlushTasks = %d, want %d", cfg.Runtime.MaxFlushTasks, DefaultMaxFlushTasks)
	}
	if cfg.Runtime.MaxEffectReruns != DefaultMaxEffectReruns {
		t.Errorf("Runtime.MaxEffectReruns = %d, want %d", cfg.Runtime.MaxEffectReruns, DefaultMaxEffectReruns)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if !cfg.Telemetry.Prometheus.Enabled {
		t.Error("Prometheus should be enabled by default")
	}
	if cfg.Telemetry.Tracing.Enabled {
		t.Error("Tracing should be disabled by default")
	}
	if cfg.Devtools.Addr != DefaultDevtoolsAddr {
		t.Errorf("Devtools.Addr = %q, want %q", cfg.Devtools.Addr, DefaultDevtoolsAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Path())
	assert.Equal(t, New().Runtime, cfg.Runtime)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	configJSON := `{
  "runtime": {
    "maxFlushTasks": 0,
    "strongRegistry": true
  },
  "log": {
    "level": "DEBUG",
    "format": "json"
  },
  "devtools": {
    "addr": "0.0.0.0:9000"
  }
}
`
	path := filepath.Join(dir, JSONFileName)
	if err := os.WriteFile(path, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Runtime.MaxFlushTasks != 0 {
		t.Errorf("explicit zero MaxFlushTasks should be kept, got %d", cfg.Runtime.MaxFlushTasks)
	}
	if cfg.Runtime.MaxEffectReruns != DefaultMaxEffectReruns {
		t.Errorf("MaxEffectReruns = %d, want default", cfg.Runtime.MaxEffectReruns)
	}
	if !cfg.Runtime.StrongRegistry {
		t.Error("StrongRegistry should be true")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want normalized %q", cfg.Log.Level, "debug")
	}
	if cfg.Devtools.Addr != "0.0.0.0:9000" {
		t.Errorf("Devtools.Addr = %q", cfg.Devtools.Addr)
	}
	if cfg.Devtools.Burst != DefaultBurst {
		t.Errorf("Devtools.Burst = %d, want default", cfg.Devtools.Burst)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	configYAML := `runtime:
  maxFlushTasks: 500
  maxEffectReruns: 10
telemetry:
  prometheus:
    enabled: false
  tracing:
    enabled: true
    tracerName: bench
`
	if err := os.WriteFile(filepath.Join(dir, YAMLFileName), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Runtime.MaxFlushTasks)
	assert.Equal(t, 10, cfg.Runtime.MaxEffectReruns)
	assert.False(t, cfg.Telemetry.Prometheus.Enabled)
	assert.True(t, cfg.Telemetry.Tracing.Enabled)
	assert.Equal(t, "bench", cfg.Telemetry.Tracing.TracerName)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestLoadPrefersJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, JSONFileName), []byte(`{"runtime":{"maxFlushTasks":1}}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, YAMLFileName), []byte("runtime:\n  maxFlushTasks: 2\n"), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Runtime.MaxFlushTasks)
	assert.True(t, Exists(dir))
	assert.False(t, Exists(t.TempDir()))
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		file     string
		content  string
		wantCode string
		wantLine int
	}{
		{
			name:     "unsupported extension",
			file:     "quark.toml",
			content:  "",
			wantCode: "Q107",
		},
		{
			name:     "invalid json",
			file:     "bad.json",
			content:  `{"runtime": {`,
			wantCode: "Q101",
		},
		{
			name:     "invalid yaml",
			file:     "bad.yaml",
			content:  "runtime:\n  maxFlushTasks: [1\nlog: {}\n",
			wantCode: "Q101",
		},
		{
			name:     "wrong yaml type",
			file:     "type.yaml",
			content:  "log:\n  level: info\nruntime:\n  maxFlushTasks: lots\n",
			wantCode: "Q101",
			wantLine: 4,
		},
		{
			name:     "bad level",
			file:     "level.yaml",
			content:  "log:\n  level: loud\n",
			wantCode: "Q102",
		},
		{
			name:     "bad format",
			file:     "format.json",
			content:  `{"log": {"format": "xml"}}`,
			wantCode: "Q103",
		},
		{
			name:     "negative budget",
			file:     "budget.json",
			content:  `{"runtime": {"maxFlushTasks": -1}}`,
			wantCode: "Q104",
		},
		{
			name:     "bad addr",
			file:     "addr.json",
			content:  `{"devtools": {"addr": "7070"}}`,
			wantCode: "Q105",
		},
		{
			name:     "bad namespace",
			file:     "ns.json",
			content:  `{"telemetry": {"prometheus": {"enabled": true, "namespace": "my-app"}}}`,
			wantCode: "Q106",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := LoadFile(path)
			require.Error(t, err)

			var qe *errors.QuarkError
			require.True(t, stderrors.As(err, &qe), "want QuarkError, got %T", err)
			assert.Equal(t, tt.wantCode, qe.Code)
			if tt.wantLine > 0 {
				require.NotNil(t, qe.Location)
				assert.Equal(t, tt.wantLine, qe.Location.Line)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "quark.json"))

	var qe *errors.QuarkError
	require.True(t, stderrors.As(err, &qe))
	assert.Equal(t, "Q100", qe.Code)
	assert.True(t, stderrors.Is(err, os.ErrNotExist))
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"out.json", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := New()
			cfg.Runtime.MaxFlushTasks = 42
			cfg.Log.Format = "json"
			cfg.Devtools.Addr = "127.0.0.1:8000"
			require.NoError(t, cfg.SaveTo(path))
			assert.Equal(t, path, cfg.Path())

			loaded, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.Runtime, loaded.Runtime)
			assert.Equal(t, cfg.Log, loaded.Log)
			assert.Equal(t, cfg.Devtools, loaded.Devtools)

			loaded.Runtime.MaxFlushTasks = 7
			require.NoError(t, loaded.Save())
			again, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, 7, again.Runtime.MaxFlushTasks)
		})
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
	if _, err := New().Marshal(".toml"); err == nil {
		t.Error("Marshal(.toml) should fail")
	}
}

func TestRuntimeOptions(t *testing.T) {
	cfg := New()
	cfg.Runtime.MaxFlushTasks = 2
	cfg.Runtime.StrongRegistry = true

	rt := quark.NewRuntime(cfg.RuntimeOptions()...)

	ran := 0
	for i := 0; i < 3; i++ {
		rt.Scheduler().Enqueue(func() { ran++ })
	}
	prev := quark.SetErrorReporter(func(error) {})
	defer quark.SetErrorReporter(prev)
	rt.Flush()
	assert.Equal(t, 2, ran, "flush budget should come from config")

	quark.NewAtom(rt, 0)
	assert.Len(t, rt.Nodes(), 1)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		format string
		level  string
		check  func(t *testing.T, out string)
	}{
		{
			format: "json",
			level:  "debug",
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `"msg":"hello"`)
				assert.Contains(t, out, `"level":"DEBUG"`)
			},
		},
		{
			format: "text",
			level:  "warn",
			check: func(t *testing.T, out string) {
				assert.Empty(t, out, "debug record should be filtered at warn")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			cfg := New()
			cfg.Log.Format = tt.format
			cfg.Log.Level = tt.level

			var buf bytes.Buffer
			cfg.NewLogger(&buf).Debug("hello")
			tt.check(t, strings.TrimSpace(buf.String()))
		})
	}
}

func TestLogLevelFallback(t *testing.T) {
	cfg := New()
	cfg.Log.Level = "nonsense"
	if got := cfg.LogLevel().String(); got != "INFO" {
		t.Errorf("LogLevel() = %s, want INFO", got)
	}
}
