package quark

import (
	"log/slog"
	"time"

	"github.com/vango-dev/quark/internal/queue"
)

// Task is a unit of batched work.
type Task func()

// SchedulerState is the flush state of a Scheduler.
type SchedulerState uint8

const (
	// StateIdle means no flush is pending.
	StateIdle SchedulerState = iota
	// StateFlushScheduled means tasks are queued and a flush was requested.
	StateFlushScheduled
	// StateFlushing means the queue is being drained.
	StateFlushing
)

// String returns the state name.
func (s SchedulerState) String() string {
	switch s {
	case StateFlushScheduled:
		return "flush-scheduled"
	case StateFlushing:
		return "flushing"
	default:
		return "idle"
	}
}

// Scheduler queues batched effect runs and signal deliveries and drains
// them in FIFO order.
//
// The first task enqueued while idle requests exactly one flush through the
// microtask hook. Tasks enqueued while flushing are drained by the same
// pass. A flush that exhausts the task budget leaves the remainder queued
// and requests a new flush through the hook, so the scheduler is always
// either idle or waiting on an outstanding request.
type Scheduler struct {
	rt       *Runtime
	state    SchedulerState
	tasks    queue.Queue[Task]
	hook     MicrotaskFunc
	maxTasks int
	flushes  uint64

	// resuming is set while requesting the flush that continues a storm.
	resuming bool
}

func newScheduler(rt *Runtime) *Scheduler {
	return &Scheduler{rt: rt}
}

// State returns the current flush state.
func (s *Scheduler) State() SchedulerState {
	return s.state
}

// Pending returns the number of queued tasks.
func (s *Scheduler) Pending() int {
	return s.tasks.Len()
}

// Flushes returns the number of completed flushes.
func (s *Scheduler) Flushes() uint64 {
	return s.flushes
}

// Enqueue appends t to the queue, requesting a flush if none is pending.
func (s *Scheduler) Enqueue(t Task) {
	if t == nil {
		return
	}
	s.tasks.Push(t)
	if s.state == StateIdle {
		s.request()
	}
}

// Flush drains the queue if a flush is scheduled. Calling it while a
// flush is running does nothing; the running flush picks up new tasks.
func (s *Scheduler) Flush() {
	s.flush()
}

func (s *Scheduler) request() {
	s.state = StateFlushScheduled
	if s.hook != nil {
		s.hook(s.flush)
	}
}

func (s *Scheduler) flush() {
	if s.state != StateFlushScheduled {
		return
	}
	s.state = StateFlushing
	start := time.Now()

	ran := 0
	for {
		if s.maxTasks > 0 && ran >= s.maxTasks && s.tasks.Len() > 0 {
			break
		}
		t, ok := s.tasks.Pop()
		if !ok {
			break
		}
		s.rt.guard(0, t)
		ran++
	}

	deferred := s.tasks.Len()
	s.state = StateIdle
	s.flushes++

	stats := FlushStats{Tasks: ran, Deferred: deferred, Duration: time.Since(start)}
	s.rt.observer.FlushCompleted(stats)
	s.rt.logger.Debug("quark: flush completed",
		slog.Int("tasks", ran),
		slog.Int("deferred", deferred),
		slog.Duration("duration", stats.Duration))

	if deferred > 0 {
		s.rt.logger.Warn("quark: flush task budget exceeded",
			slog.Int("limit", s.maxTasks),
			slog.Int("deferred", deferred))
		s.rt.report(&FlushStormError{Limit: s.maxTasks, Deferred: deferred})
		if s.state == StateIdle {
			s.resuming = true
			s.request()
			s.resuming = false
		}
	}
}

// Resuming reports whether the flush being requested continues one that
// hit its task budget. Hooks may use it to run the continuation on a later
// turn instead of the current microtask drain.
func (s *Scheduler) Resuming() bool {
	return s.resuming
}
