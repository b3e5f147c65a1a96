package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cloutagent/cloutagent/internal/domain"
	"github.com/cloutagent/cloutagent/internal/domain/cost"
	"github.com/cloutagent/cloutagent/internal/port/cache"
	"github.com/cloutagent/cloutagent/internal/port/coststore"
)

// projectTotalTTL bounds how stale a cached project total may be.
const projectTotalTTL = 30 * time.Second

// trackedExecution is the in-memory running state for one execution id.
type trackedExecution struct {
	tokens cost.TokenUsage
	cost   float64
}

// CostTracker accumulates per-execution token usage and cost in memory and
// aggregates saved executions into durable per-project records.
type CostTracker struct {
	model string
	store coststore.Store
	cache cache.Cache

	mu         sync.RWMutex
	executions map[string]*trackedExecution

	projectMu sync.Mutex
	projects  map[string]*sync.Mutex
}

// NewCostTracker creates a tracker pricing executions at the given model's
// rates. An empty model selects cost.DefaultModel.
func NewCostTracker(model string, store coststore.Store) *CostTracker {
	if model == "" {
		model = cost.DefaultModel
	}
	return &CostTracker{
		model:      model,
		store:      store,
		executions: make(map[string]*trackedExecution),
		projects:   make(map[string]*sync.Mutex),
	}
}

// SetCache attaches an L1 cache for project total reads.
func (t *CostTracker) SetCache(c cache.Cache) {
	t.cache = c
}

// TrackTokens accumulates usage for an execution id. A new id starts from the
// given usage; an existing one adds input/output into the running totals and
// recomputes cost. Accumulated cost never decreases for the life of the
// tracker.
func (t *CostTracker) TrackTokens(executionID string, usage cost.TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.executions[executionID]
	if !ok {
		entry = &trackedExecution{}
		t.executions[executionID] = entry
	}

	entry.tokens.Input += usage.Input
	entry.tokens.Output += usage.Output
	entry.tokens.Total = entry.tokens.Input + entry.tokens.Output
	entry.cost = cost.Calculate(t.model, entry.tokens)
}

// CheckLimits reports whether an execution is within the given ceilings.
// An untracked id is always within limits. The token check takes priority
// over the cost check when both are exceeded.
func (t *CostTracker) CheckLimits(executionID string, limits cost.Limits) cost.LimitCheck {
	t.mu.RLock()
	entry, ok := t.executions[executionID]
	t.mu.RUnlock()

	if !ok {
		return cost.LimitCheck{WithinLimits: true}
	}

	if limits.MaxTokens > 0 {
		total := entry.tokens.Sum()
		if total > limits.MaxTokens {
			return cost.LimitCheck{
				WithinLimits: false,
				Exceeded: &cost.Exceeded{
					Type:    cost.ExceededTokens,
					Current: float64(total),
					Limit:   float64(limits.MaxTokens),
				},
			}
		}
	}

	if limits.MaxCost > 0 && entry.cost > limits.MaxCost {
		return cost.LimitCheck{
			WithinLimits: false,
			Exceeded: &cost.Exceeded{
				Type:    cost.ExceededCost,
				Current: entry.cost,
				Limit:   limits.MaxCost,
			},
		}
	}

	return cost.LimitCheck{WithinLimits: true}
}

// ExecutionCost returns the accumulated cost for an execution id, or 0 for
// an untracked id.
func (t *CostTracker) ExecutionCost(executionID string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if entry, ok := t.executions[executionID]; ok {
		return entry.cost
	}
	return 0
}

// SaveProjectCost upserts an execution's usage into the project's durable
// record and recomputes the project total. Unknown execution ids are a no-op.
// Read-modify-write cycles for the same project are serialized; saves for
// different projects proceed independently.
func (t *CostTracker) SaveProjectCost(ctx context.Context, projectID, executionID string) error {
	t.mu.RLock()
	entry, ok := t.executions[executionID]
	var snapshot trackedExecution
	if ok {
		snapshot = *entry
	}
	t.mu.RUnlock()

	if !ok {
		return nil
	}

	lock := t.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	record, err := t.store.Load(ctx, projectID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("load project costs: %w", err)
		}
		record = &cost.ProjectCosts{
			ProjectID:  projectID,
			Executions: make(map[string]cost.ExecutionRecord),
		}
	}

	record.Executions[executionID] = cost.ExecutionRecord{
		ExecutionID: executionID,
		Tokens:      snapshot.tokens,
		Cost:        snapshot.cost,
		Timestamp:   time.Now().UTC(),
	}
	record.RecomputeTotal()

	if err := t.store.Save(ctx, projectID, record); err != nil {
		return fmt.Errorf("save project costs: %w", err)
	}

	t.invalidateTotal(ctx, projectID)
	return nil
}

// ProjectTotalCost returns the durable total for a project. Missing,
// unreadable, or corrupt records read as 0; this method never fails.
func (t *CostTracker) ProjectTotalCost(ctx context.Context, projectID string) float64 {
	if t.cache != nil {
		if data, ok, err := t.cache.Get(ctx, totalCacheKey(projectID)); err == nil && ok {
			if total, err := strconv.ParseFloat(string(data), 64); err == nil {
				return total
			}
		}
	}

	record, err := t.store.Load(ctx, projectID)
	if err != nil {
		return 0
	}

	if t.cache != nil {
		val := strconv.FormatFloat(record.TotalCost, 'f', -1, 64)
		if err := t.cache.Set(ctx, totalCacheKey(projectID), []byte(val), projectTotalTTL); err != nil {
			slog.Debug("cache project total failed", "project_id", projectID, "error", err)
		}
	}
	return record.TotalCost
}

// projectLock returns the mutex serializing saves for one project id.
func (t *CostTracker) projectLock(projectID string) *sync.Mutex {
	t.projectMu.Lock()
	defer t.projectMu.Unlock()

	lock, ok := t.projects[projectID]
	if !ok {
		lock = &sync.Mutex{}
		t.projects[projectID] = lock
	}
	return lock
}

func (t *CostTracker) invalidateTotal(ctx context.Context, projectID string) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Delete(ctx, totalCacheKey(projectID)); err != nil {
		slog.Debug("cache invalidate failed", "project_id", projectID, "error", err)
	}
}

func totalCacheKey(projectID string) string {
	return "costs:total:" + projectID
}
