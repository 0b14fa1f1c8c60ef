package orchestrator

import "time"

// Event type names, in the order they appear over one build's lifetime.
const (
	EventBuildStarted      = "build_started"
	EventPlanningStarted   = "planning_started"
	EventPlanningCompleted = "planning_completed"
	EventBuildPhaseStarted = "build_phase_started"
	EventTaskStarted       = "task_started"
	EventFileWritten       = "file_written"
	EventTaskCompleted     = "task_completed"
	EventTaskFailed        = "task_failed"
	EventBuildCompleted    = "build_completed"
	EventBuildFailed       = "build_failed"
	EventBuildCancelled    = "build_cancelled"
)

// Event is one immutable state-transition record published to subscribers of
// a build. Delivery is fire-and-forget; the core keeps no event history
// beyond optional sinks.
type Event struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	return Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()}
}

// EventSink receives a copy of every emitted event for mirroring (audit
// store, message bus). Sink errors are logged and swallowed; a broken sink
// never affects the build.
type EventSink interface {
	Record(buildID string, event Event) error
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(buildID string, event Event) error

// Record implements EventSink.
func (f SinkFunc) Record(buildID string, event Event) error {
	return f(buildID, event)
}
