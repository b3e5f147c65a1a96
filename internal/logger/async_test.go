package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// captureHandler retains every record it handles, optionally slowing down to
// simulate an expensive formatter.
type captureHandler struct {
	perRecord time.Duration

	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler takes the record by value
	if h.perRecord > 0 {
		time.Sleep(h.perRecord)
	}
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func record(msg string) slog.Record {
	return slog.NewRecord(time.Now(), slog.LevelInfo, msg, 0)
}

func TestAsyncHandlerDeliversRecord(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 16, 1)

	if err := ah.Handle(context.Background(), record("execution started")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	ah.Close()

	if got := inner.count(); got != 1 {
		t.Fatalf("expected 1 record delivered, got %d", got)
	}
}

func TestAsyncHandlerConcurrentProducers(t *testing.T) {
	const producers = 50
	const perProducer = 100

	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, producers*perProducer, 4)

	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perProducer {
				_ = ah.Handle(context.Background(), record("chunk"))
			}
		}()
	}
	wg.Wait()
	ah.Close()

	if got, want := inner.count(), producers*perProducer; got != want {
		t.Fatalf("expected %d records, got %d", want, got)
	}
}

func TestAsyncHandlerDropsOnFullQueue(t *testing.T) {
	inner := &captureHandler{perRecord: 10 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	for range 50 {
		_ = ah.Handle(context.Background(), record("flood"))
	}
	ah.Close()

	if ah.DroppedCount() == 0 {
		t.Fatal("expected drops when the queue is saturated")
	}
}

func TestAsyncHandlerCloseDrainsQueue(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 500, 2)

	const total = 200
	for range total {
		_ = ah.Handle(context.Background(), record("pending"))
	}
	ah.Close()

	if got := inner.count(); got != total {
		t.Fatalf("expected %d records after close, got %d", total, got)
	}
}
