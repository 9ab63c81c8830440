package quark

import (
	"fmt"

	"github.com/vango-dev/quark/internal/list"
)

// Signal is a discrete event channel. It stores no value: Emit hands the
// payload to the listeners registered at that moment, and late listeners
// never see past events.
//
// Batched signals (the default) queue one delivery per listener on the
// scheduler. Signals created with SignalSync deliver inside Emit.
type Signal[T any] struct {
	rt        *Runtime
	id        int64
	label     string
	sync      bool
	listeners list.List[*listener[T]]
	destroyed bool
}

type listener[T any] struct {
	id      int64
	fn      func(T)
	removed bool
}

// NewSignal creates a signal. Accepts Label and SignalSync.
func NewSignal[T any](rt *Runtime, opts ...CellOption) *Signal[T] {
	o := applyCellOptions(opts)
	return &Signal[T]{
		rt:    rt,
		id:    rt.ids.allocate(),
		label: o.label,
		sync:  o.sync,
	}
}

// Emit dispatches v to every current listener in registration order.
// Emitting on a destroyed signal does nothing.
func (s *Signal[T]) Emit(v T) {
	if s.destroyed {
		return
	}
	for _, l := range s.listeners.Values() {
		if s.sync {
			s.deliver(l, v)
			continue
		}
		s.rt.scheduler.Enqueue(func() {
			s.deliver(l, v)
		})
	}
}

// Subscribe registers fn and returns a function that removes it. A removed
// listener does not receive deliveries that were queued before removal.
func (s *Signal[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	return s.subscribe(s.rt.ids.allocate(), fn)
}

func (s *Signal[T]) subscribe(id int64, fn func(T)) func() {
	l := &listener[T]{id: id, fn: fn}
	if s.destroyed {
		l.removed = true
		return func() {}
	}
	s.listeners.Push(l)
	return func() {
		if l.removed {
			return
		}
		l.removed = true
		s.listeners.RemoveIf(func(x *listener[T]) bool { return x == l })
	}
}

func (s *Signal[T]) deliver(l *listener[T], v T) {
	if l.removed {
		return
	}
	s.rt.guard(l.id, func() {
		s.rt.Untracked(func() { l.fn(v) })
	})
}

// ListenerCount returns the number of registered listeners.
func (s *Signal[T]) ListenerCount() int {
	return s.listeners.Len()
}

// Sync reports whether the signal delivers synchronously.
func (s *Signal[T]) Sync() bool {
	return s.sync
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() int64 {
	return s.id
}

// Label returns the name given with the Label option.
func (s *Signal[T]) Label() string {
	return s.label
}

// Destroy removes every listener. Queued deliveries are dropped.
func (s *Signal[T]) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.listeners.Each(func(l *listener[T]) bool {
		l.removed = true
		return true
	})
	s.listeners.Clear()
}

// IsDestroyed reports whether Destroy has been called.
func (s *Signal[T]) IsDestroyed() bool {
	return s.destroyed
}

func (s *Signal[T]) bindEffect(e *Effect, cb func(T)) {
	if s.rt != e.rt {
		panic(fmt.Sprintf("quark: effect %d and signal %d belong to different runtimes", e.id, s.id))
	}
	e.detach = s.subscribe(e.id, func(v T) {
		if e.destroyed {
			return
		}
		ok := e.invoke(func() { cb(v) })
		e.rt.observer.EffectRan(e.stats(false, !ok))
	})
}

var _ Observable[int] = (*Signal[int])(nil)
