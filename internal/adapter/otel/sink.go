package otel

import (
	"context"
	"time"

	"github.com/cloutagent/cloutagent/internal/domain/execution"
)

// Sink records execution lifecycle events as metrics.
type Sink struct {
	metrics *Metrics
}

// NewSink wraps the metric instruments as an execution event sink.
func NewSink(metrics *Metrics) *Sink {
	return &Sink{metrics: metrics}
}

// Publish updates counters and histograms from one lifecycle event. Output
// chunks are not metered individually.
func (s *Sink) Publish(ev execution.Event) {
	ctx := context.Background()

	switch data := ev.Data.(type) {
	case execution.StartedData:
		s.metrics.ExecutionsStarted.Add(ctx, 1)
	case execution.CompletedData:
		// Token counts come from the final breakdown; mid-stream usage
		// events carry running totals and would double-count.
		s.metrics.ExecutionsCompleted.Add(ctx, 1)
		s.metrics.TokensUsed.Add(ctx, int64(data.Cost.PromptTokens+data.Cost.CompletionTokens))
		s.metrics.ExecutionDuration.Record(ctx, float64(data.DurationMS)/float64(time.Second.Milliseconds()))
		s.metrics.ExecutionCost.Record(ctx, data.Cost.TotalCost)
	case execution.FailedData:
		s.metrics.ExecutionsFailed.Add(ctx, 1)
		s.metrics.ExecutionDuration.Record(ctx, float64(data.DurationMS)/float64(time.Second.Milliseconds()))
	}
}
