package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/quark/internal/errors"
	"github.com/vango-dev/quark/pkg/quark"
)

const (
	// JSONFileName is the name of the JSON configuration file.
	JSONFileName = "quark.json"

	// YAMLFileName is the name of the YAML configuration file.
	YAMLFileName = "quark.yaml"

	// DefaultMaxFlushTasks is the default flush task budget.
	DefaultMaxFlushTasks = 100_000

	// DefaultMaxEffectReruns is the default sync effect re-run limit.
	DefaultMaxEffectReruns = 100

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default log format.
	DefaultLogFormat = "text"

	// DefaultNamespace is the default Prometheus metric namespace.
	DefaultNamespace = "quark"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "github.com/vango-dev/quark"

	// DefaultDevtoolsAddr is the default inspector listen address.
	DefaultDevtoolsAddr = "localhost:7070"

	// DefaultMaxEventsPerSecond is the default inspector broadcast rate.
	DefaultMaxEventsPerSecond = 50

	// DefaultBurst is the default inspector broadcast burst.
	DefaultBurst = 100
)

// fileNames lists the config files Load looks for, in order.
var fileNames = []string{JSONFileName, YAMLFileName, "quark.yml"}

// Config represents the complete quark configuration.
type Config struct {
	// Runtime contains reactive runtime limits.
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`

	// Log contains logging configuration.
	Log LogConfig `json:"log" yaml:"log"`

	// Telemetry contains metrics and tracing configuration.
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`

	// Devtools contains inspector configuration.
	Devtools DevtoolsConfig `json:"devtools" yaml:"devtools"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RuntimeConfig contains reactive runtime limits.
type RuntimeConfig struct {
	// MaxFlushTasks bounds the tasks one flush runs. Zero disables the bound.
	MaxFlushTasks int `json:"maxFlushTasks" yaml:"maxFlushTasks"`

	// MaxEffectReruns bounds how often a sync effect re-runs itself.
	MaxEffectReruns int `json:"maxEffectReruns" yaml:"maxEffectReruns"`

	// StrongRegistry keeps every node in the inspection registry until it
	// is destroyed instead of holding nodes weakly.
	StrongRegistry bool `json:"strongRegistry,omitempty" yaml:"strongRegistry,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format"`
}

// TelemetryConfig contains metrics and tracing settings.
type TelemetryConfig struct {
	Prometheus PrometheusConfig `json:"prometheus" yaml:"prometheus"`
	Tracing    TracingConfig    `json:"tracing" yaml:"tracing"`
}

// PrometheusConfig contains Prometheus collector settings.
type PrometheusConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	TracerName string `json:"tracerName" yaml:"tracerName"`
}

// DevtoolsConfig contains inspector settings.
type DevtoolsConfig struct {
	// Addr is the host:port the inspector listens on.
	Addr string `json:"addr" yaml:"addr"`

	// MaxEventsPerSecond limits how many graph events are streamed to
	// inspector clients.
	MaxEventsPerSecond float64 `json:"maxEventsPerSecond" yaml:"maxEventsPerSecond"`

	// Burst is the number of events that may be streamed at once.
	Burst int `json:"burst" yaml:"burst"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			MaxFlushTasks:   DefaultMaxFlushTasks,
			MaxEffectReruns: DefaultMaxEffectReruns,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Telemetry: TelemetryConfig{
			Prometheus: PrometheusConfig{
				Enabled:   true,
				Namespace: DefaultNamespace,
			},
			Tracing: TracingConfig{
				TracerName: DefaultTracerName,
			},
		},
		Devtools: DevtoolsConfig{
			Addr:               DefaultDevtoolsAddr,
			MaxEventsPerSecond: DefaultMaxEventsPerSecond,
			Burst:              DefaultBurst,
		},
	}
}

// Load reads configuration from the specified directory. It looks for
// quark.json, then quark.yaml, then quark.yml. When none exists the
// defaults are returned.
func Load(dir string) (*Config, error) {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return New(), nil
}

// LoadFile reads and validates configuration from the specified file path.
// The format is chosen by extension.
func LoadFile(path string) (*Config, error) {
	unmarshal, err := decoderFor(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("Q100").Wrap(err).
			WithDetail("Could not read " + path)
	}

	cfg := New()
	if err := unmarshal(data, cfg); err != nil {
		return nil, errors.New("Q101").
			WithLocationFromError(path, err).
			Wrap(err).
			WithSuggestion("Check that " + filepath.Base(path) + " is well formed")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		if qe, ok := err.(*errors.QuarkError); ok && qe.Location == nil {
			qe.Location = &errors.Location{File: path}
		}
		return nil, err
	}
	return cfg, nil
}

func decoderFor(path string) (func([]byte, any) error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Unmarshal, nil
	case ".yaml", ".yml":
		return yaml.Unmarshal, nil
	default:
		return nil, errors.New("Q107").
			WithDetail("Cannot load " + path + ": only .json, .yaml and .yml files are supported")
	}
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, as JSON or YAML
// depending on the extension.
func (c *Config) SaveTo(path string) error {
	data, err := c.Marshal(filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("Q100").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Marshal encodes the configuration. ext selects the format (".json",
// ".yaml" or ".yml").
func (c *Config) Marshal(ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".json":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, errors.New("Q101").Wrap(err)
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml":
		data, err := yaml.Marshal(c)
		if err != nil {
			return nil, errors.New("Q101").Wrap(err)
		}
		return data, nil
	default:
		return nil, errors.New("Q107")
	}
}

// Path returns the path where the config was loaded from, or "" when the
// defaults are in use.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for fields where zero is not a
// meaningful setting.
func (c *Config) applyDefaults() {
	if c.Runtime.MaxEffectReruns == 0 {
		c.Runtime.MaxEffectReruns = DefaultMaxEffectReruns
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)

	if c.Telemetry.Prometheus.Namespace == "" {
		c.Telemetry.Prometheus.Namespace = DefaultNamespace
	}
	if c.Telemetry.Tracing.TracerName == "" {
		c.Telemetry.Tracing.TracerName = DefaultTracerName
	}

	if c.Devtools.Addr == "" {
		c.Devtools.Addr = DefaultDevtoolsAddr
	}
	if c.Devtools.MaxEventsPerSecond == 0 {
		c.Devtools.MaxEventsPerSecond = DefaultMaxEventsPerSecond
	}
	if c.Devtools.Burst == 0 {
		c.Devtools.Burst = DefaultBurst
	}
}

var metricNamespace = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Runtime.MaxFlushTasks < 0 {
		return errors.New("Q104").
			WithSuggestion("Set runtime.maxFlushTasks to 0 to disable the budget")
	}
	if c.Runtime.MaxEffectReruns < 0 {
		return errors.New("Q104").
			WithSuggestion("Set runtime.maxEffectReruns to a positive number such as 100")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return errors.New("Q102").Wrap(err).
			WithSuggestion("Use one of: debug, info, warn, error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("Q103").
			WithSuggestion(`Use "text" or "json"`)
	}

	if c.Telemetry.Prometheus.Enabled && !metricNamespace.MatchString(c.Telemetry.Prometheus.Namespace) {
		return errors.New("Q106").
			WithSuggestion("Use letters, digits and underscores, for example \"quark\"")
	}

	if _, _, err := net.SplitHostPort(c.Devtools.Addr); err != nil {
		return errors.New("Q105").Wrap(err).
			WithSuggestion("Use an address such as localhost:7070")
	}
	if c.Devtools.MaxEventsPerSecond < 0 || c.Devtools.Burst < 0 {
		return errors.New("Q105").
			WithSuggestion("Use positive values for devtools.maxEventsPerSecond and devtools.burst")
	}
	return nil
}

// RuntimeOptions maps the runtime settings to quark options.
func (c *Config) RuntimeOptions() []quark.Option {
	opts := []quark.Option{
		quark.WithMaxFlushTasks(c.Runtime.MaxFlushTasks),
		quark.WithMaxEffectReruns(c.Runtime.MaxEffectReruns),
	}
	if c.Runtime.StrongRegistry {
		opts = append(opts, quark.WithStrongRegistry())
	}
	return opts
}

// LogLevel returns the configured level, or info if it does not parse.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds a logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range fileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
