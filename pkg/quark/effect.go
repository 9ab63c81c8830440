package quark

import "fmt"

// Observable is anything an effect can watch: an Atom, a Compute, a
// read-only view, or a Signal.
type Observable[T any] interface {
	bindEffect(e *Effect, cb func(T))
}

// Effect re-runs a callback whenever its source changes.
//
// Effects on an Atom or Compute run once on creation to establish their
// baseline. Later changes run the callback immediately (sync effects) or
// enqueue a single run token on the scheduler (batched effects), so any
// number of writes in one turn produce one run observing the final value.
// The callback is skipped when the source version is unchanged, and it runs
// untracked: reads inside it do not become dependencies.
//
// Effects on a Signal receive every event, delivered with the signal's own
// scheduling mode.
type Effect struct {
	rt    *Runtime
	id    int64
	label string
	sync  bool

	// run performs one evaluation for state sources. nil for signals.
	run func()

	// deps are the sources read by the last run.
	deps []dependency

	// detach unsubscribes from a signal source.
	detach func()

	// task is the run token queued on the scheduler.
	task Task

	pending   bool
	running   bool
	rerun     bool
	destroyed bool
}

// EffectOption configures an Effect.
type EffectOption func(*Effect)

// EffectLabel names the effect for logs, metrics and the inspector.
func EffectLabel(name string) EffectOption {
	return func(e *Effect) {
		e.label = name
	}
}

// NewEffect creates a batched effect. Runs triggered by source changes are
// coalesced and executed on the next scheduler flush.
func NewEffect[T any](rt *Runtime, src Observable[T], cb func(T), opts ...EffectOption) *Effect {
	return newEffect(rt, src, cb, false, opts)
}

// NewSyncEffect creates an effect that runs synchronously inside the write
// that changed its source.
func NewSyncEffect[T any](rt *Runtime, src Observable[T], cb func(T), opts ...EffectOption) *Effect {
	return newEffect(rt, src, cb, true, opts)
}

func newEffect[T any](rt *Runtime, src Observable[T], cb func(T), sync bool, opts []EffectOption) *Effect {
	e := &Effect{
		rt:   rt,
		id:   rt.ids.allocate(),
		sync: sync,
	}
	e.task = e.runScheduled
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	src.bindEffect(e, cb)
	e.execute()
	return e
}

// bindState wires an effect to a readable cell.
func bindState[T any](e *Effect, src Source[T], cb func(T)) {
	if src.stateSource().base().rt != e.rt {
		panic(fmt.Sprintf("quark: effect %d and its source belong to different runtimes", e.id))
	}

	var last uint64
	ran := false

	e.run = func() {
		var v T
		deps, panicked := e.rt.collect(e, func() {
			v = src.Get()
		})
		if e.destroyed {
			return
		}
		relink(e, e.deps, deps)
		e.deps = deps

		if panicked != nil {
			e.rt.report(&CallbackError{OwnerID: e.id, Value: panicked})
			e.rt.observer.EffectRan(e.stats(false, true))
			return
		}

		version := src.Version()
		if ran && version == last {
			e.rt.observer.EffectRan(e.stats(true, false))
			return
		}
		ran, last = true, version

		ok := e.invoke(func() { cb(v) })
		e.rt.observer.EffectRan(e.stats(false, !ok))
	}
}

// ID returns the unique identifier for this effect.
func (e *Effect) ID() int64 {
	return e.id
}

// Label returns the name given with EffectLabel.
func (e *Effect) Label() string {
	return e.label
}

// Sync reports whether the effect runs synchronously.
func (e *Effect) Sync() bool {
	return e.sync
}

// Pending reports whether a batched run is queued.
func (e *Effect) Pending() bool {
	return e.pending
}

// IsDestroyed reports whether Destroy has been called.
func (e *Effect) IsDestroyed() bool {
	return e.destroyed
}

// Destroy unsubscribes the effect from every source. A queued run becomes a
// no-op. Safe to call more than once and from inside the callback.
func (e *Effect) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.pending = false

	unlinkAll(e, e.deps)
	e.deps = nil

	if e.detach != nil {
		e.detach()
		e.detach = nil
	}
}

// notify implements subscriber.
func (e *Effect) notify() {
	if e.destroyed {
		return
	}
	if e.sync {
		e.execute()
		return
	}
	if e.pending {
		return
	}
	e.pending = true
	e.rt.scheduler.Enqueue(e.task)
}

func (e *Effect) runScheduled() {
	if !e.pending || e.destroyed {
		return
	}
	e.pending = false
	e.execute()
}

// execute runs the effect. A trigger arriving while the effect is running
// is folded into a re-run after the current one finishes, up to the
// runtime's re-run limit.
func (e *Effect) execute() {
	if e.destroyed || e.run == nil {
		return
	}
	if e.running {
		e.rerun = true
		return
	}

	e.running = true
	defer func() {
		e.running = false
		e.rerun = false
	}()

	for i := 1; ; i++ {
		e.rerun = false
		e.run()
		if !e.rerun || e.destroyed {
			return
		}
		if i >= e.rt.maxReruns {
			e.rt.report(&CyclicDependencyError{NodeID: e.id, Kind: KindEffect, Label: e.label})
			return
		}
	}
}

// invoke runs fn untracked behind the error boundary.
func (e *Effect) invoke(fn func()) bool {
	return e.rt.guard(e.id, func() {
		e.rt.Untracked(fn)
	})
}

func (e *Effect) stats(skipped, failed bool) EffectStats {
	return EffectStats{
		ID:      e.id,
		Label:   e.label,
		Sync:    e.sync,
		Skipped: skipped,
		Failed:  failed,
	}
}

var _ subscriber = (*Effect)(nil)
