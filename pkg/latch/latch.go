// Package latch provides a one-shot settle point with external resolve and
// reject, used to hand results of scheduled work to goroutines waiting on it.
//
// A Latch settles exactly once. The first call to Resolve or Reject wins;
// every later call, including calling the other one, is rejected with
// ErrAlreadySettled and leaves the settled outcome untouched. Callers that
// may race to settle must check that error rather than assume success.
package latch

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadySettled is returned when Resolve or Reject is called on a latch
// that has already settled.
var ErrAlreadySettled = errors.New("latch: already settled")

// ErrPending is returned by Result while the latch has not settled.
var ErrPending = errors.New("latch: pending")

// ErrNilRejection is returned by Reject when called with a nil error.
var ErrNilRejection = errors.New("latch: reject called with nil error")

// State describes the settle state of a Latch.
type State uint8

const (
	Pending State = iota
	Resolved
	Rejected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Latch is a single-assignment result cell.
type Latch[T any] struct {
	mu    sync.Mutex
	state State
	value T
	err   error
	done  chan struct{}
}

// New returns a pending latch.
func New[T any]() *Latch[T] {
	return &Latch[T]{done: make(chan struct{})}
}

// ResolvedWith returns a latch already resolved with v.
func ResolvedWith[T any](v T) *Latch[T] {
	l := New[T]()
	_ = l.Resolve(v)
	return l
}

// Resolve settles the latch with v.
func (l *Latch[T]) Resolve(v T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Pending {
		return ErrAlreadySettled
	}
	l.state = Resolved
	l.value = v
	close(l.done)
	return nil
}

// Reject settles the latch with err. err must be non-nil.
func (l *Latch[T]) Reject(err error) error {
	if err == nil {
		return ErrNilRejection
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Pending {
		return ErrAlreadySettled
	}
	l.state = Rejected
	l.err = err
	close(l.done)
	return nil
}

// Done returns a channel closed once the latch settles.
func (l *Latch[T]) Done() <-chan struct{} {
	return l.done
}

// State returns the current state.
func (l *Latch[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Settled reports whether the latch has settled.
func (l *Latch[T]) Settled() bool {
	return l.State() != Pending
}

// Result returns the settled outcome without blocking, or ErrPending.
func (l *Latch[T]) Result() (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Pending {
		var zero T
		return zero, ErrPending
	}
	return l.value, l.err
}

// Wait blocks until the latch settles or ctx is done.
func (l *Latch[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-l.done:
		return l.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
