package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "cloutagent"

// StartExecutionSpan starts a span for one agent execution. The execution ID
// is not known until the engine returns, so callers record it with RecordExecutionID.
func StartExecutionSpan(ctx context.Context, agentID, model string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "execution",
		trace.WithAttributes(
			attribute.String("agent.id", agentID),
			attribute.String("agent.model", model),
		),
	)
}

// RecordExecutionID attaches the engine-assigned execution ID to a span.
func RecordExecutionID(span trace.Span, executionID string) {
	span.SetAttributes(attribute.String("execution.id", executionID))
}

// StartPersistSpan starts a span for a cost or history persistence step.
func StartPersistSpan(ctx context.Context, projectID, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "persist",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.String("persist.kind", kind),
		),
	)
}
