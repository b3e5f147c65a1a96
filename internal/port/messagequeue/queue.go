// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Queue is the port interface for publishing execution events to external
// consumers.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Drain gracefully flushes pending messages before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for execution lifecycle messages.
const (
	SubjectExecutionStarted    = "executions.started"
	SubjectExecutionOutput     = "executions.output"
	SubjectExecutionTokenUsage = "executions.tokens"
	SubjectExecutionCompleted  = "executions.completed"
	SubjectExecutionFailed     = "executions.failed"
)
