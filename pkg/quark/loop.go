package quark

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/quark/pkg/latch"
)

// Loop owns a Runtime on a dedicated goroutine.
//
// Work submitted from any goroutine runs as a turn: the task executes, then
// the microtask queue drains, which is where the runtime's scheduler flushes
// batched effects. Turns never overlap, so the runtime is only ever touched
// by the loop goroutine.
type Loop struct {
	rt *Runtime

	ingress chan func()
	stop    chan struct{}
	done    chan struct{}

	// microtasks and afterTurn are only touched by the loop goroutine.
	microtasks []func()
	afterTurn  []func()
	resume     func()

	running  atomic.Bool
	stopOnce sync.Once
}

// DefaultIngressSize is the capacity of the submit queue.
const DefaultIngressSize = 1024

// NewLoop creates a loop and its runtime. opts configure the runtime; the
// microtask hook is installed by the loop and must not be overridden.
func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		ingress: make(chan func(), DefaultIngressSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	opts = append(opts, WithMicrotaskHook(l.queueMicrotask))
	l.rt = NewRuntime(opts...)
	return l
}

// Runtime returns the loop's runtime. It may only be used from tasks
// running on the loop.
func (l *Loop) Runtime() *Runtime {
	return l.rt
}

// Run processes turns until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer close(l.done)
	defer l.Stop()

	l.rt.logger.Debug("quark: loop started")
	defer l.rt.logger.Debug("quark: loop stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		default:
		}

		// A flush that hit its task budget resumes as its own turn, ahead
		// of blocking on new work but after anything already submitted.
		if l.resume != nil {
			select {
			case fn := <-l.ingress:
				l.turn(fn)
			default:
				fn := l.resume
				l.resume = nil
				l.turn(fn)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		case fn := <-l.ingress:
			l.turn(fn)
		}
	}
}

// Stop asks Run to return after the current turn. Safe to call more than
// once and from any goroutine.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Submit queues fn to run as a turn on the loop goroutine. It blocks while
// the ingress queue is full and fails once the loop is stopped.
func (l *Loop) Submit(fn func()) error {
	if fn == nil {
		return nil
	}
	select {
	case <-l.stop:
		return ErrLoopStopped
	default:
	}
	select {
	case l.ingress <- fn:
		return nil
	case <-l.stop:
		return ErrLoopStopped
	}
}

// queueMicrotask is the runtime's microtask hook. The continuation of a
// flush that hit its task budget is held for a turn of its own.
func (l *Loop) queueMicrotask(fn func()) {
	if l.rt.scheduler.Resuming() {
		l.resume = fn
		return
	}
	l.microtasks = append(l.microtasks, fn)
}

func (l *Loop) turn(fn func()) {
	l.rt.guard(0, fn)
	l.drainMicrotasks()

	after := l.afterTurn
	l.afterTurn = nil
	for _, cb := range after {
		cb()
	}
}

func (l *Loop) drainMicrotasks() {
	for len(l.microtasks) > 0 {
		fn := l.microtasks[0]
		l.microtasks[0] = nil
		l.microtasks = l.microtasks[1:]
		l.rt.guard(0, fn)
	}
	l.microtasks = l.microtasks[:0]
}

// Call runs fn as a turn on l and waits for its result. The result is
// delivered after the turn's microtasks have drained, so batched effects
// triggered by fn have already run when Call returns. A panic in fn is
// returned as an error.
func Call[T any](ctx context.Context, l *Loop, fn func(rt *Runtime) (T, error)) (T, error) {
	result := latch.New[T]()

	err := l.Submit(func() {
		var (
			v       T
			callErr error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					callErr = fmt.Errorf("quark: call panicked: %w", panicError(r))
				}
			}()
			v, callErr = fn(l.rt)
		}()

		l.afterTurn = append(l.afterTurn, func() {
			if callErr != nil {
				_ = result.Reject(callErr)
				return
			}
			_ = result.Resolve(v)
		})
	})
	if err != nil {
		var zero T
		return zero, err
	}

	select {
	case <-result.Done():
		return result.Result()
	case <-l.done:
		// The turn may have completed just before the loop exited.
		if result.Settled() {
			return result.Result()
		}
		var zero T
		return zero, ErrLoopStopped
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
