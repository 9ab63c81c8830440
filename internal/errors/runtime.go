package errors

import (
	stderrors "errors"

	"github.com/vango-dev/quark/pkg/quark"
)

// FromRuntime converts an error reported by the reactive runtime into a
// coded QuarkError.
func FromRuntime(err error) *QuarkError {
	if err == nil {
		return nil
	}
	var qe *QuarkError
	if stderrors.As(err, &qe) {
		return qe
	}

	code := "Q300"
	switch {
	case stderrors.Is(err, quark.ErrCyclicDependency):
		code = "Q301"
	case stderrors.Is(err, quark.ErrScopeDestroyed):
		code = "Q302"
	case stderrors.Is(err, quark.ErrCallback):
		code = "Q303"
	case stderrors.Is(err, quark.ErrFlushStorm):
		code = "Q304"
	case stderrors.Is(err, quark.ErrLoopStopped):
		code = "Q305"
	}
	return New(code).Wrap(err)
}
