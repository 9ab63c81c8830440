package quark

import (
	"errors"
	"fmt"
)

var (
	// ErrCyclicDependency is matched by every CyclicDependencyError.
	ErrCyclicDependency = errors.New("quark: cyclic dependency")

	// ErrScopeDestroyed is matched by every ScopeDestroyedError.
	ErrScopeDestroyed = errors.New("quark: scope destroyed")

	// ErrCallback is matched by every CallbackError.
	ErrCallback = errors.New("quark: callback failed")

	// ErrEvaluation wraps non-error panic values raised by a compute
	// function and returned from Compute.Read.
	ErrEvaluation = errors.New("quark: evaluation failed")

	// ErrFlushStorm is reported when a single flush runs more tasks than
	// the runtime allows. The remaining tasks move to the next flush.
	ErrFlushStorm = errors.New("quark: flush task budget exceeded")

	// ErrLoopRunning is returned by Loop.Run when the loop is already running.
	ErrLoopRunning = errors.New("quark: loop already running")

	// ErrLoopStopped is returned when work is submitted to a stopped loop.
	ErrLoopStopped = errors.New("quark: loop stopped")
)

// CyclicDependencyError reports a compute or effect that re-entered its own
// evaluation.
type CyclicDependencyError struct {
	NodeID int64
	Kind   NodeKind
	Label  string
}

func (e *CyclicDependencyError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("quark: cyclic dependency detected at %s %d (%s)", e.Kind, e.NodeID, e.Label)
	}
	return fmt.Sprintf("quark: cyclic dependency detected at %s %d", e.Kind, e.NodeID)
}

// Is reports whether target is ErrCyclicDependency.
func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// ScopeDestroyedError reports an attempt to create or register a resource
// in a scope that has already been destroyed.
type ScopeDestroyedError struct {
	ScopeID int64
	Op      string
}

func (e *ScopeDestroyedError) Error() string {
	return fmt.Sprintf("quark: cannot %s: scope %d is destroyed", e.Op, e.ScopeID)
}

// Is reports whether target is ErrScopeDestroyed.
func (e *ScopeDestroyedError) Is(target error) bool {
	return target == ErrScopeDestroyed
}

// CallbackError wraps a panic raised inside an effect callback or a signal
// listener. It is delivered to the error reporter, never to the writer that
// triggered the callback.
type CallbackError struct {
	// OwnerID is the id of the effect, listener or scope that failed.
	OwnerID int64

	// Value is the recovered panic value.
	Value any
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("quark: callback %d failed: %v", e.OwnerID, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *CallbackError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Is reports whether target is ErrCallback.
func (e *CallbackError) Is(target error) bool {
	return target == ErrCallback
}

// FlushStormError reports a flush that hit the task budget.
type FlushStormError struct {
	Limit    int
	Deferred int
}

func (e *FlushStormError) Error() string {
	return fmt.Sprintf("quark: flush ran %d tasks, deferring %d to the next flush", e.Limit, e.Deferred)
}

// Is reports whether target is ErrFlushStorm.
func (e *FlushStormError) Is(target error) bool {
	return target == ErrFlushStorm
}

// panicError converts a recovered panic value into an error.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%w: %v", ErrEvaluation, r)
}
