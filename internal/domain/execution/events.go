package execution

import (
	"time"

	"github.com/cloutagent/cloutagent/internal/domain/cost"
)

// EventType tags a lifecycle event.
type EventType string

const (
	EventStarted    EventType = "execution:started"
	EventOutput     EventType = "execution:output"
	EventTokenUsage EventType = "execution:token-usage"
	EventCompleted  EventType = "execution:completed"
	EventFailed     EventType = "execution:failed"
)

// Event is one lifecycle notification. Every event emitted during a single
// call carries the same ExecutionID so consumers can demultiplex concurrent
// streams. Ordering: started is always first; completed (or failed) is always
// last; output events fall strictly between them in provider arrival order.
type Event struct {
	Type        EventType `json:"type"`
	ExecutionID string    `json:"execution_id"`
	Timestamp   time.Time `json:"timestamp"`
	Data        any       `json:"data"`
}

// StartedData accompanies EventStarted.
type StartedData struct {
	AgentID string `json:"agent_id"`
}

// OutputData carries one provider text chunk, verbatim.
type OutputData struct {
	Chunk string `json:"chunk"`
}

// TokenUsageData carries running token counts and the cost estimated from them.
type TokenUsageData struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	EstimatedCost    float64 `json:"estimated_cost"`
}

// CompletedData accompanies EventCompleted with the full concatenated output.
type CompletedData struct {
	Result     string         `json:"result"`
	Cost       cost.Breakdown `json:"cost"`
	DurationMS int64          `json:"duration_ms"`
}

// FailedData accompanies EventFailed.
type FailedData struct {
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

// Sink receives lifecycle events. Implementations must be safe for use from
// a single execution's goroutine; the engine never publishes concurrently to
// one sink within one call.
type Sink interface {
	Publish(ev Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ev Event)

// Publish calls f(ev).
func (f SinkFunc) Publish(ev Event) { f(ev) }

// MultiSink fans one event out to several sinks in order.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(ev Event) {
		for _, s := range sinks {
			if s != nil {
				s.Publish(ev)
			}
		}
	})
}

// NewEvent builds an event stamped with the current time.
func NewEvent(t EventType, executionID string, data any) Event {
	return Event{
		Type:        t,
		ExecutionID: executionID,
		Timestamp:   time.Now().UTC(),
		Data:        data,
	}
}
