package quark

import "time"

// FlushStats describes one scheduler flush.
type FlushStats struct {
	// Tasks is the number of tasks executed.
	Tasks int

	// Deferred is the number of tasks moved to the next flush because the
	// task budget was exhausted.
	Deferred int

	// Duration is the wall time spent flushing.
	Duration time.Duration
}

// EffectStats describes one effect run.
type EffectStats struct {
	ID    int64
	Label string
	Sync  bool

	// Skipped is true when the source version was unchanged and the
	// callback was not invoked.
	Skipped bool

	// Failed is true when the callback panicked.
	Failed bool
}

// Observer receives runtime events. Implementations run on the runtime's
// goroutine and must not block.
type Observer interface {
	AtomWritten(id int64, label string)
	ComputeEvaluated(id int64, label string)
	EffectRan(stats EffectStats)
	FlushCompleted(stats FlushStats)
	ErrorReported(err error)
}

// NoopObserver ignores every event.
type NoopObserver struct{}

func (NoopObserver) AtomWritten(int64, string)      {}
func (NoopObserver) ComputeEvaluated(int64, string) {}
func (NoopObserver) EffectRan(EffectStats)          {}
func (NoopObserver) FlushCompleted(FlushStats)      {}
func (NoopObserver) ErrorReported(error)            {}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) AtomWritten(id int64, label string) {
	for _, o := range m {
		o.AtomWritten(id, label)
	}
}

func (m MultiObserver) ComputeEvaluated(id int64, label string) {
	for _, o := range m {
		o.ComputeEvaluated(id, label)
	}
}

func (m MultiObserver) EffectRan(stats EffectStats) {
	for _, o := range m {
		o.EffectRan(stats)
	}
}

func (m MultiObserver) FlushCompleted(stats FlushStats) {
	for _, o := range m {
		o.FlushCompleted(stats)
	}
}

func (m MultiObserver) ErrorReported(err error) {
	for _, o := range m {
		o.ErrorReported(err)
	}
}

var _ Observer = NoopObserver{}
var _ Observer = MultiObserver(nil)
