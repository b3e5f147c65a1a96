package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cloutagent/cloutagent/internal/domain/execution"
)

// sseSink writes execution lifecycle events to one SSE response as they are
// published. Writes are serialized; the HTTP handler owns the flusher.
type sseSink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSESink(w http.ResponseWriter) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	return &sseSink{w: w, flusher: flusher}, nil
}

// Publish renders one lifecycle event as an SSE message named by the
// event's type.
func (s *sseSink) Publish(ev execution.Event) {
	s.write(string(ev.Type), ev)
}

// StreamExecution handles POST /api/v1/agents/{id}/execute/stream.
// The response is a Server-Sent Events stream of lifecycle events; the final
// execution result is delivered as the terminating "result" message.
func (h *Handlers) StreamExecution(w http.ResponseWriter, r *http.Request) {
	ag, err := h.Registry.Get(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "agent not found")
		return
	}

	req, ok := readJSON[executeRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Input, "input") {
		return
	}

	sink, err := newSSESink(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	sink.flusher.Flush()

	startedAt := time.Now().UTC()
	result := h.Engine.Stream(r.Context(), ag, req.Input, sink, req.options())
	h.finishExecution(r, ag, req.ProjectID, result, startedAt)

	sink.write("result", result)
}

func (s *sseSink) write(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal sse payload", "event", event, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		slog.Debug("sse write failed", "event", event, "error", err)
		return
	}
	s.flusher.Flush()
}
