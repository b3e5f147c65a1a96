// Package cost defines domain types for token accounting and cost aggregation.
package cost

import "time"

// TokenUsage counts tokens consumed by one or more provider calls.
// Total, when zero, is derived as Input+Output; a stored Total is normalized,
// never authoritative on its own.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total,omitempty"`
}

// Sum returns the total token count, deriving it when Total is unset.
func (u TokenUsage) Sum() int {
	if u.Total > 0 {
		return u.Total
	}
	return u.Input + u.Output
}

// Breakdown is the cost portion of an execution result.
type Breakdown struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalCost        float64 `json:"total_cost"`
}

// Limits holds optional per-execution ceilings. A zero value means the
// corresponding dimension is unlimited.
type Limits struct {
	MaxTokens int     `json:"max_tokens,omitempty"`
	MaxCost   float64 `json:"max_cost,omitempty"`
}

// Exceeded dimension identifiers.
const (
	ExceededTokens = "tokens"
	ExceededCost   = "cost"
)

// Exceeded describes which limit was crossed and by how much.
type Exceeded struct {
	Type    string  `json:"type"` // "tokens" or "cost"
	Current float64 `json:"current"`
	Limit   float64 `json:"limit"`
}

// LimitCheck is the outcome of checking an execution against Limits.
type LimitCheck struct {
	WithinLimits bool      `json:"within_limits"`
	Exceeded     *Exceeded `json:"exceeded,omitempty"`
}

// ExecutionRecord is one execution's contribution to a project's costs,
// as persisted in the project cost file.
type ExecutionRecord struct {
	ExecutionID string     `json:"executionId"`
	Tokens      TokenUsage `json:"tokens"`
	Cost        float64    `json:"cost"`
	Timestamp   time.Time  `json:"timestamp"`
}

// ProjectCosts is the durable per-project cost record. TotalCost is always
// recomputed as the sum over Executions, never independently mutated.
type ProjectCosts struct {
	ProjectID  string                     `json:"projectId"`
	TotalCost  float64                    `json:"totalCost"`
	Executions map[string]ExecutionRecord `json:"executions"`
}

// RecomputeTotal recalculates TotalCost from the execution map.
func (p *ProjectCosts) RecomputeTotal() {
	total := 0.0
	for _, rec := range p.Executions {
		total += rec.Cost
	}
	p.TotalCost = total
}
