package telemetry

import (
	"errors"

	"github.com/vango-dev/quark/pkg/quark"
)

// Error kinds used as metric labels and span attributes. A fixed set keeps
// label cardinality bounded.
const (
	KindCyclic      = "cyclic_dependency"
	KindScope       = "scope_destroyed"
	KindCallback    = "callback"
	KindFlushStorm  = "flush_storm"
	KindLoopStopped = "loop_stopped"
	KindOther       = "other"
)

// ErrorKind classifies an error reported by the runtime.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, quark.ErrCyclicDependency):
		return KindCyclic
	case errors.Is(err, quark.ErrScopeDestroyed):
		return KindScope
	case errors.Is(err, quark.ErrCallback):
		return KindCallback
	case errors.Is(err, quark.ErrFlushStorm):
		return KindFlushStorm
	case errors.Is(err, quark.ErrLoopStopped):
		return KindLoopStopped
	default:
		return KindOther
	}
}

// effectOutcome returns the outcome label for an effect run.
func effectOutcome(s quark.EffectStats) string {
	switch {
	case s.Failed:
		return "failed"
	case s.Skipped:
		return "skipped"
	default:
		return "ran"
	}
}

// effectMode returns the scheduling mode label for an effect run.
func effectMode(s quark.EffectStats) string {
	if s.Sync {
		return "sync"
	}
	return "batched"
}
