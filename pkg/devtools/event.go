package devtools

import (
	"time"

	"github.com/vango-dev/quark/pkg/quark"
	"github.com/vango-dev/quark/pkg/telemetry"
)

// EventType identifies a streamed inspector event.
type EventType string

const (
	EventHello   EventType = "hello"
	EventAtom    EventType = "atom.write"
	EventCompute EventType = "compute.evaluate"
	EventEffect  EventType = "effect.run"
	EventFlush   EventType = "flush"
	EventError   EventType = "error"
)

// Event is one message on the /events stream.
type Event struct {
	Type  EventType `json:"type"`
	Time  time.Time `json:"time"`
	ID    int64     `json:"id,omitempty"`
	Label string    `json:"label,omitempty"`

	// Effect runs.
	Mode    string `json:"mode,omitempty"`
	Outcome string `json:"outcome,omitempty"`

	// Flushes.
	Tasks          int   `json:"tasks,omitempty"`
	Deferred       int   `json:"deferred,omitempty"`
	DurationMicros int64 `json:"durationMicros,omitempty"`

	// Errors.
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`

	// Client is set on the hello event.
	Client string `json:"client,omitempty"`

	// Dropped counts events discarded by the rate limiter since the
	// previous event was sent.
	Dropped uint64 `json:"dropped,omitempty"`
}

func effectEvent(s quark.EffectStats) Event {
	ev := Event{
		Type:    EventEffect,
		ID:      s.ID,
		Label:   s.Label,
		Mode:    "batched",
		Outcome: "ran",
	}
	if s.Sync {
		ev.Mode = "sync"
	}
	switch {
	case s.Failed:
		ev.Outcome = "failed"
	case s.Skipped:
		ev.Outcome = "skipped"
	}
	return ev
}

func flushEvent(s quark.FlushStats) Event {
	return Event{
		Type:           EventFlush,
		Tasks:          s.Tasks,
		Deferred:       s.Deferred,
		DurationMicros: s.Duration.Microseconds(),
	}
}

func errorEvent(err error) Event {
	return Event{
		Type:  EventError,
		Kind:  telemetry.ErrorKind(err),
		Error: err.Error(),
	}
}
