// Package execution defines the execution domain: options, results, and the
// lifecycle event stream emitted while an agent runs.
package execution

import (
	"time"

	"github.com/cloutagent/cloutagent/internal/domain/cost"
)

// DefaultTimeout bounds a provider call when the caller sets none.
const DefaultTimeout = 120 * time.Second

// Options carries per-call overrides. Transient; never persisted.
type Options struct {
	// Timeout bounds the provider call. Zero means DefaultTimeout.
	Timeout time.Duration
	// MaxTokens overrides the agent's configured output ceiling when > 0.
	MaxTokens int
	// Variables substitute {{name}} placeholders in the system prompt.
	Variables map[string]string
}

// Status is the terminal state of an execution.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result is the outcome of one execution. It is created once per call,
// immutable after construction, and returned for both success and failure;
// the two differ only in Status, Error, and zeroed cost fields.
type Result struct {
	ID         string         `json:"id"`
	Status     Status         `json:"status"`
	Result     string         `json:"result,omitempty"`
	Cost       cost.Breakdown `json:"cost"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
}

// Record is a finished execution as persisted in the per-project history.
type Record struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	AgentID     string         `json:"agent_id"`
	Status      Status         `json:"status"`
	Output      string         `json:"output,omitempty"`
	Tokens      cost.TokenUsage `json:"tokens"`
	CostUSD     float64        `json:"cost_usd"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	DurationMS  int64          `json:"duration_ms"`
	Error       string         `json:"error,omitempty"`
}

// Summary is the listing view of a Record, without the full output.
type Summary struct {
	ID         string          `json:"id"`
	ProjectID  string          `json:"project_id"`
	AgentID    string          `json:"agent_id"`
	Status     Status          `json:"status"`
	Tokens     cost.TokenUsage `json:"tokens"`
	CostUSD    float64         `json:"cost_usd"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMS int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
}

// Summarize converts a Record to its listing view.
func (r *Record) Summarize() Summary {
	return Summary{
		ID:         r.ID,
		ProjectID:  r.ProjectID,
		AgentID:    r.AgentID,
		Status:     r.Status,
		Tokens:     r.Tokens,
		CostUSD:    r.CostUSD,
		StartedAt:  r.StartedAt,
		DurationMS: r.DurationMS,
		Error:      r.Error,
	}
}
