package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (Q100-Q199)
	// ============================================

	"Q100": {
		Category: CategoryConfig,
		Message:  "Config file not readable",
		Detail:   "The configuration file exists but could not be read. Check its permissions.",
	},
	"Q101": {
		Category: CategoryConfig,
		Message:  "Invalid config syntax",
		Detail:   "The configuration file could not be parsed. quark.json must be valid JSON and quark.yaml valid YAML.",
	},
	"Q102": {
		Category: CategoryConfig,
		Message:  "Invalid log level",
		Detail:   "log.level must be one of debug, info, warn or error.",
	},
	"Q103": {
		Category: CategoryConfig,
		Message:  "Invalid log format",
		Detail:   "log.format must be text or json.",
	},
	"Q104": {
		Category: CategoryConfig,
		Message:  "Invalid runtime limit",
		Detail:   "runtime.maxFlushTasks must be zero or positive and runtime.maxEffectReruns must be positive.",
	},
	"Q105": {
		Category: CategoryConfig,
		Message:  "Invalid devtools settings",
		Detail:   "devtools.addr must be a host:port pair and devtools.maxEventsPerSecond and devtools.burst must be positive.",
	},
	"Q106": {
		Category: CategoryConfig,
		Message:  "Invalid telemetry settings",
		Detail:   "telemetry.prometheus.namespace must be a valid metric name prefix and telemetry.tracing.tracerName must not be empty when tracing is enabled.",
	},
	"Q107": {
		Category: CategoryConfig,
		Message:  "Unsupported config file",
		Detail:   "Only .json, .yaml and .yml configuration files are supported.",
	},

	// ============================================
	// CLI Errors (Q200-Q299)
	// ============================================

	"Q200": {
		Category: CategoryCLI,
		Message:  "Invalid argument",
		Detail:   "A command-line flag or argument has an invalid value.",
	},
	"Q201": {
		Category: CategoryCLI,
		Message:  "Unknown benchmark scenario",
		Detail:   "The bench command does not know the requested scenario. Run quark bench --list to see the available ones.",
	},
	"Q202": {
		Category: CategoryCLI,
		Message:  "Inspector failed to start",
		Detail:   "The devtools inspector could not listen on the configured address. Another process may be using the port.",
	},

	// ============================================
	// Runtime Errors (Q300-Q399)
	// ============================================

	"Q300": {
		Category: CategoryRuntime,
		Message:  "Reactive runtime error",
		Detail:   "The reactive runtime reported an error.",
	},
	"Q301": {
		Category: CategoryRuntime,
		Message:  "Circular dependency detected",
		Detail:   "A compute read itself, directly or through other computes, or an effect kept re-triggering itself past the re-run limit.",
	},
	"Q302": {
		Category: CategoryRuntime,
		Message:  "Scope destroyed",
		Detail:   "A node was created in, or registered with, a scope that had already been destroyed.",
	},
	"Q303": {
		Category: CategoryRuntime,
		Message:  "Effect callback failed",
		Detail:   "An effect callback or signal listener panicked. The panic was recovered and the remaining callbacks ran.",
	},
	"Q304": {
		Category: CategoryRuntime,
		Message:  "Flush task budget exceeded",
		Detail:   "A single flush ran more tasks than runtime.maxFlushTasks allows. The remaining tasks moved to the next flush. This usually means effects keep writing to atoms they depend on.",
	},
	"Q305": {
		Category: CategoryRuntime,
		Message:  "Loop stopped",
		Detail:   "Work was submitted to a runtime loop that has already stopped.",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns every registered code in the given category.
func Codes(category Category) []string {
	var codes []string
	for code, t := range registry {
		if t.Category == category {
			codes = append(codes, code)
		}
	}
	return codes
}
