package harvest

import "time"

// EventType identifies an engine event.
type EventType int

const (
	EventAttemptStarted EventType = iota
	EventAttemptFailed
	EventBackoff
	EventCredentialsRefreshed
	EventCredentialRefreshFailed
	EventSucceeded
	EventFailed
	EventDuplicateCompletion
	EventBatchFlushed
	EventBatchWriteFailed
	EventJobStarted
	EventJobAborted
	EventJobFinished
)

var eventNames = [...]string{
	"attempt started",
	"attempt failed",
	"backoff",
	"credentials refreshed",
	"credential refresh failed",
	"descriptor succeeded",
	"descriptor failed",
	"duplicate completion",
	"batch flushed",
	"batch write failed",
	"job started",
	"job aborted",
	"job finished",
}

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	if t < 0 || int(t) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[t]
}

// Event is a structured observation emitted by the engine.
// Only the fields relevant to Type are set.
type Event struct {
	Type    EventType
	Job     string
	Key     string
	URL     string
	Attempt int // 1-based
	Kind    FailureKind
	Status  int
	Batch   int
	Size    int
	Delay   time.Duration
	Err     error
}

// EventSink receives engine events. Implementations must be safe for
// concurrent use: attempt events are emitted from fetch goroutines.
type EventSink interface {
	Emit(e Event)
}

// EventFunc adapts a function to an EventSink.
type EventFunc func(e Event)

// Emit calls f(e).
func (f EventFunc) Emit(e Event) { f(e) }

// Discard is an EventSink that drops every event.
var Discard EventSink = EventFunc(func(Event) {})
