package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cloutagent/cloutagent/internal/domain/execution"
	"github.com/cloutagent/cloutagent/internal/port/broadcast"
)

// BroadcastEvent marshals a typed event and broadcasts it to all clients.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

// Sink adapts a broadcaster to the execution event sink interface. Each
// lifecycle event goes out as one WebSocket message typed by the event's own
// type, so clients can demultiplex concurrent executions by execution id.
type Sink struct {
	b broadcast.Broadcaster
}

// NewSink wraps a broadcaster as an execution event sink.
func NewSink(b broadcast.Broadcaster) *Sink {
	return &Sink{b: b}
}

// Publish broadcasts one lifecycle event.
func (s *Sink) Publish(ev execution.Event) {
	s.b.BroadcastEvent(context.Background(), string(ev.Type), ev)
}
