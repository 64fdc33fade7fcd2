package worker

import "time"

// Event is one timestamped log line emitted by a worker. Workers are the
// only writers of their own events; display surfaces consume them through
// an EventSink so no state is mutated across goroutines.
type Event struct {
	Time    time.Time
	RunID   string
	Worker  string
	Level   string
	Message string
}

// Event levels, matching the eventlog schema.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// EventSink receives worker events. Implementations must be safe for
// concurrent use; every running worker emits from its own goroutine.
type EventSink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(e Event)

// Emit implements EventSink.
func (f SinkFunc) Emit(e Event) { f(e) }

// NopSink discards all events.
var NopSink EventSink = SinkFunc(func(Event) {})
