package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "cloutagent"

// Metrics holds the execution metric instruments.
type Metrics struct {
	ExecutionsStarted   metric.Int64Counter
	ExecutionsCompleted metric.Int64Counter
	ExecutionsFailed    metric.Int64Counter
	ExecutionDuration   metric.Float64Histogram
	ExecutionCost       metric.Float64Histogram
	TokensUsed          metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ExecutionsStarted, err = meter.Int64Counter("cloutagent.executions.started",
		metric.WithDescription("Number of executions started"))
	if err != nil {
		return nil, err
	}

	m.ExecutionsCompleted, err = meter.Int64Counter("cloutagent.executions.completed",
		metric.WithDescription("Number of executions completed"))
	if err != nil {
		return nil, err
	}

	m.ExecutionsFailed, err = meter.Int64Counter("cloutagent.executions.failed",
		metric.WithDescription("Number of executions failed"))
	if err != nil {
		return nil, err
	}

	m.ExecutionDuration, err = meter.Float64Histogram("cloutagent.execution.duration_seconds",
		metric.WithDescription("Execution duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.ExecutionCost, err = meter.Float64Histogram("cloutagent.execution.cost_usd",
		metric.WithDescription("Execution cost in USD"))
	if err != nil {
		return nil, err
	}

	m.TokensUsed, err = meter.Int64Counter("cloutagent.tokens.used",
		metric.WithDescription("Total tokens consumed"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
