package quark

import (
	"testing"
)

// captureErrors installs an error reporter collecting every reported error
// for the duration of the test.
func captureErrors(t *testing.T) *[]error {
	t.Helper()
	var errs []error
	prev := SetErrorReporter(func(err error) {
		errs = append(errs, err)
	})
	t.Cleanup(func() {
		SetErrorReporter(prev)
	})
	return &errs
}

// recordingObserver counts runtime events.
type recordingObserver struct {
	NoopObserver
	writes  int
	evals   int
	effects []EffectStats
	flushes []FlushStats
	errors  []error
}

func (o *recordingObserver) AtomWritten(int64, string)      { o.writes++ }
func (o *recordingObserver) ComputeEvaluated(int64, string) { o.evals++ }
func (o *recordingObserver) EffectRan(s EffectStats)        { o.effects = append(o.effects, s) }
func (o *recordingObserver) FlushCompleted(s FlushStats)    { o.flushes = append(o.flushes, s) }
func (o *recordingObserver) ErrorReported(err error)        { o.errors = append(o.errors, err) }
