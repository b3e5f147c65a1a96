package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes buffered log records before the process exits.
type Closer interface {
	Close()
}

// nopCloser backs synchronous logging, where there is nothing to flush.
type nopCloser struct{}

func (nopCloser) Close() {}

// AsyncHandler keeps log formatting off the request and streaming paths.
// Handle only enqueues the record; a worker pool forwards the queue to the
// wrapped handler. When the queue is full the record is dropped rather than
// stalling an execution mid-stream.
type AsyncHandler struct {
	next  slog.Handler
	queue chan slog.Record
	wg    *sync.WaitGroup
	drops *atomic.Int64
}

// NewAsyncHandler wraps next with a queue of the given capacity drained by
// the given number of workers.
func NewAsyncHandler(next slog.Handler, capacity, workers int) *AsyncHandler {
	h := &AsyncHandler{
		next:  next,
		queue: make(chan slog.Record, capacity),
		wg:    &sync.WaitGroup{},
		drops: &atomic.Int64{},
	}
	for range workers {
		h.wg.Add(1)
		go h.work()
	}
	return h
}

func (h *AsyncHandler) work() {
	defer h.wg.Done()
	for rec := range h.queue {
		_ = h.next.Handle(context.Background(), rec)
	}
}

// Enabled delegates the level check to the wrapped handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle enqueues the record without blocking, counting it as dropped when
// the queue is full.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler takes the record by value
	select {
	case h.queue <- rec:
	default:
		h.drops.Add(1)
	}
	return nil
}

// WithAttrs wraps the derived inner handler while sharing the queue, the
// workers, and the drop counter.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), queue: h.queue, wg: h.wg, drops: h.drops}
}

// WithGroup wraps the derived inner handler while sharing the queue, the
// workers, and the drop counter.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), queue: h.queue, wg: h.wg, drops: h.drops}
}

// DroppedCount reports how many records were discarded on a full queue.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.drops.Load()
}

// Close stops accepting records and blocks until the workers have drained
// the queue.
func (h *AsyncHandler) Close() {
	close(h.queue)
	h.wg.Wait()
}
