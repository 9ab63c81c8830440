package quark

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// ErrorReporter receives errors that escaped an effect callback or a signal
// listener.
type ErrorReporter func(err error)

var errorReporter atomic.Pointer[ErrorReporter]

// SetErrorReporter replaces the process-wide error reporter and returns the
// previous one. Passing nil restores the default, which logs through
// slog.Default.
func SetErrorReporter(fn ErrorReporter) ErrorReporter {
	var next *ErrorReporter
	if fn != nil {
		next = &fn
	}
	prev := errorReporter.Swap(next)
	if prev == nil {
		return nil
	}
	return *prev
}

// ReportError hands err to the installed reporter. It never panics: if the
// reporter panics, err and the panic are logged through slog.Default.
func ReportError(err error) {
	if err == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logUncaught(err)
			logSafely(func() {
				slog.Default().Error("quark: error reporter panicked", slog.String("panic", fmt.Sprint(r)))
			})
		}
	}()

	if fn := errorReporter.Load(); fn != nil {
		(*fn)(err)
		return
	}
	logUncaught(err)
}

func logUncaught(err error) {
	logSafely(func() {
		slog.Default().Error("quark: uncaught error", slog.String("error", err.Error()))
	})
}

// logSafely swallows panics from a misbehaving log handler.
func logSafely(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
