package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cloutagent/cloutagent/internal/domain/execution"
	"github.com/cloutagent/cloutagent/internal/port/messagequeue"
)

// publishTimeout bounds how long a relay publish may block the event path.
const publishTimeout = 5 * time.Second

// EventRelay forwards execution lifecycle events onto the message queue so
// external consumers can follow executions without a WebSocket connection.
// Publish failures are logged and dropped; the queue is a best-effort fanout,
// not part of the execution contract.
type EventRelay struct {
	queue messagequeue.Queue
}

// NewEventRelay wraps a queue as an execution event sink.
func NewEventRelay(queue messagequeue.Queue) *EventRelay {
	return &EventRelay{queue: queue}
}

// Publish relays one event to its subject.
func (r *EventRelay) Publish(ev execution.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal execution event", "type", ev.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := r.queue.Publish(ctx, subjectFor(ev.Type), data); err != nil {
		slog.Error("relay execution event", "type", ev.Type, "execution_id", ev.ExecutionID, "error", err)
	}
}

func subjectFor(t execution.EventType) string {
	switch t {
	case execution.EventStarted:
		return messagequeue.SubjectExecutionStarted
	case execution.EventOutput:
		return messagequeue.SubjectExecutionOutput
	case execution.EventTokenUsage:
		return messagequeue.SubjectExecutionTokenUsage
	case execution.EventCompleted:
		return messagequeue.SubjectExecutionCompleted
	case execution.EventFailed:
		return messagequeue.SubjectExecutionFailed
	default:
		return "executions.unknown"
	}
}
