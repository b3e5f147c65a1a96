package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloutagent/cloutagent/internal/domain/cost"
	"github.com/cloutagent/cloutagent/internal/domain/execution"
	"github.com/cloutagent/cloutagent/internal/port/historystore"
)

// HistoryService records finished executions and serves them back.
type HistoryService struct {
	store historystore.Store
}

func NewHistoryService(store historystore.Store) *HistoryService {
	return &HistoryService{store: store}
}

// Record persists one finished execution for a project. The record's token
// counts come from the result's cost breakdown.
func (h *HistoryService) Record(ctx context.Context, projectID, agentID string, result *execution.Result, startedAt time.Time) error {
	rec := &execution.Record{
		ID:        result.ID,
		ProjectID: projectID,
		AgentID:   agentID,
		Status:    result.Status,
		Output:    result.Result,
		Tokens: cost.TokenUsage{
			Input:  result.Cost.PromptTokens,
			Output: result.Cost.CompletionTokens,
			Total:  result.Cost.PromptTokens + result.Cost.CompletionTokens,
		},
		CostUSD:     result.Cost.TotalCost,
		StartedAt:   startedAt.UTC(),
		CompletedAt: startedAt.UTC().Add(time.Duration(result.DurationMS) * time.Millisecond),
		DurationMS:  result.DurationMS,
		Error:       result.Error,
	}

	if err := h.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("record execution %s: %w", result.ID, err)
	}
	slog.Debug("execution recorded", "execution_id", result.ID, "project_id", projectID, "status", result.Status)
	return nil
}

// Get returns one execution record.
func (h *HistoryService) Get(ctx context.Context, projectID, executionID string) (*execution.Record, error) {
	return h.store.Get(ctx, projectID, executionID)
}

// List returns execution summaries newest-first plus the total count.
func (h *HistoryService) List(ctx context.Context, projectID string, opts historystore.ListOptions) ([]execution.Summary, int, error) {
	return h.store.List(ctx, projectID, opts)
}
