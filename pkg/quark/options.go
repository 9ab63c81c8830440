package quark

import (
	"fmt"
	"log/slog"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithObserver installs an observer. Calling it more than once fans events
// out to every observer in installation order.
func WithObserver(o Observer) Option {
	return func(rt *Runtime) {
		if o == nil {
			return
		}
		if _, ok := rt.observer.(NoopObserver); ok {
			rt.observer = o
			return
		}
		rt.observer = MultiObserver{rt.observer, o}
	}
}

// MicrotaskFunc schedules flush to run once the current turn completes.
type MicrotaskFunc func(flush func())

// WithMicrotaskHook installs the host hook used to schedule flushes.
// Without a hook the host must call Runtime.Flush itself.
func WithMicrotaskHook(fn MicrotaskFunc) Option {
	return func(rt *Runtime) {
		rt.scheduler.hook = fn
	}
}

// WithMaxFlushTasks bounds how many tasks a single flush runs before the
// remainder is deferred and ErrFlushStorm is reported. Zero disables the
// bound.
func WithMaxFlushTasks(n int) Option {
	return func(rt *Runtime) {
		if n >= 0 {
			rt.scheduler.maxTasks = n
		}
	}
}

// WithMaxEffectReruns bounds how many times a sync effect re-runs because it
// was re-triggered during its own run.
func WithMaxEffectReruns(n int) Option {
	return func(rt *Runtime) {
		if n > 0 {
			rt.maxReruns = n
		}
	}
}

// WithStrongRegistry makes the node registry hold nodes strongly, so
// Runtime.Nodes reports every node ever created until it is destroyed.
// By default the registry holds nodes weakly.
func WithStrongRegistry() Option {
	return func(rt *Runtime) {
		rt.strongRegistry = true
	}
}

// CellOption configures an Atom, Compute or Signal.
type CellOption func(*cellOptions)

type cellOptions struct {
	label string
	equal any
	sync  bool
}

// Label names a node for logs, metrics and the inspector.
func Label(name string) CellOption {
	return func(o *cellOptions) {
		o.label = name
	}
}

// Equal sets the comparator deciding whether a new value is a change.
// The comparator's type must match the cell's value type.
func Equal[T any](fn func(a, b T) bool) CellOption {
	return func(o *cellOptions) {
		o.equal = fn
	}
}

// SignalSync makes a signal dispatch to listeners immediately instead of
// through the scheduler.
func SignalSync() CellOption {
	return func(o *cellOptions) {
		o.sync = true
	}
}

func applyCellOptions(opts []CellOption) cellOptions {
	var o cellOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// comparator resolves the configured comparator for T.
func comparator[T any](o cellOptions) func(a, b T) bool {
	if o.equal == nil {
		return defaultEquals[T]
	}
	fn, ok := o.equal.(func(a, b T) bool)
	if !ok {
		var zero T
		panic(fmt.Sprintf("quark: comparator type %T does not match value type %T", o.equal, zero))
	}
	return fn
}
