package quark

import (
	"log/slog"

	"github.com/vango-dev/quark/internal/weak"
)

// Runtime is the evaluation context shared by every node it creates: the
// dependency tracking frame, the scheduler, id allocation and the observer.
// Nodes hold their runtime explicitly; nothing is kept in package state
// except the error reporter.
//
// A Runtime is not safe for concurrent use. See Loop.
type Runtime struct {
	ids       idGen
	frame     *frame
	scheduler *Scheduler
	observer  Observer
	logger    *slog.Logger

	// epoch increments on every accepted atom write. A compute verified at
	// the current epoch is known to be fresh without walking its sources.
	epoch uint64

	maxReruns int

	strongRegistry bool
	registry       *weak.Association[node, struct{}]
}

const (
	defaultMaxFlushTasks   = 100_000
	defaultMaxEffectReruns = 100
)

// NewRuntime creates a runtime.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		ids:       newIDGen(),
		observer:  NoopObserver{},
		logger:    slog.Default(),
		maxReruns: defaultMaxEffectReruns,
	}
	rt.scheduler = newScheduler(rt)
	rt.scheduler.maxTasks = defaultMaxFlushTasks

	for _, opt := range opts {
		if opt != nil {
			opt(rt)
		}
	}

	mode := weak.Weak
	if rt.strongRegistry {
		mode = weak.Strong
	}
	rt.registry = weak.New[node, struct{}](mode)

	return rt
}

// Scheduler returns the runtime's scheduler.
func (rt *Runtime) Scheduler() *Scheduler {
	return rt.scheduler
}

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Flush runs pending batched work now. It is a no-op when nothing is
// scheduled or a flush is already in progress.
func (rt *Runtime) Flush() {
	rt.scheduler.Flush()
}

// Turn runs fn and then flushes, so batched effects observe every mutation
// made by fn together.
func (rt *Runtime) Turn(fn func()) {
	fn()
	rt.Flush()
}

// Untracked runs fn without recording dependency edges for the caller.
func (rt *Runtime) Untracked(fn func()) {
	prev := rt.frame
	rt.frame = nil
	defer func() { rt.frame = prev }()
	fn()
}

// Tracking reports whether a compute or effect is currently recording
// dependencies.
func (rt *Runtime) Tracking() bool {
	return rt.frame != nil
}

// NewScope creates a root scope.
func (rt *Runtime) NewScope() *Scope {
	return newScope(rt, nil)
}

// frame collects the dependencies read during one evaluation.
type frame struct {
	owner subscriber
	deps  []dependency
	seen  map[*node]int
}

// dependency is a (source, version) pair captured at read time.
type dependency struct {
	src     source
	version uint64
}

// track records src as a dependency of the evaluation in progress.
func (rt *Runtime) track(src source) {
	f := rt.frame
	if f == nil {
		return
	}
	if s, ok := src.(subscriber); ok && s == f.owner {
		return
	}
	n := src.base()
	if n.destroyed {
		return
	}
	if f.seen == nil {
		f.seen = make(map[*node]int)
	}
	if i, ok := f.seen[n]; ok {
		f.deps[i].version = n.version
		return
	}
	f.seen[n] = len(f.deps)
	f.deps = append(f.deps, dependency{src: src, version: n.version})
}

// collect runs fn in a fresh tracking frame owned by owner. It returns the
// dependencies read so far together with any panic raised by fn, so callers
// can relink before deciding how to surface the failure.
func (rt *Runtime) collect(owner subscriber, fn func()) (deps []dependency, panicked any) {
	f := &frame{owner: owner}
	prev := rt.frame
	rt.frame = f
	defer func() {
		rt.frame = prev
		deps = f.deps
		panicked = recover()
	}()
	fn()
	return nil, nil
}

// guard runs fn, converting a panic into a CallbackError delivered to the
// error reporter. It returns false when fn panicked.
func (rt *Runtime) guard(ownerID int64, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			rt.report(&CallbackError{OwnerID: ownerID, Value: r})
		}
	}()
	fn()
	return true
}

func (rt *Runtime) report(err error) {
	rt.observer.ErrorReported(err)
	ReportError(err)
}

func (rt *Runtime) register(n *node) {
	rt.registry.Set(n, struct{}{})
}

func (rt *Runtime) unregister(n *node) {
	rt.registry.Delete(n)
}
