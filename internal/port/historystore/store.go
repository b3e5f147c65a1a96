// Package historystore defines the port for persisted execution history.
package historystore

import (
	"context"

	"github.com/cloutagent/cloutagent/internal/domain/execution"
)

// ListOptions filter and paginate a history listing.
type ListOptions struct {
	Limit  int              // default 50
	Offset int              // skip first N results
	Status execution.Status // empty means all
}

// Store persists finished executions, one record per execution id, grouped
// by project.
type Store interface {
	// Save writes the record atomically (write-then-rename).
	Save(ctx context.Context, rec *execution.Record) error

	// Get returns a record, or domain.ErrNotFound.
	Get(ctx context.Context, projectID, executionID string) (*execution.Record, error)

	// List returns summaries newest-first along with the total count before
	// pagination.
	List(ctx context.Context, projectID string, opts ListOptions) ([]execution.Summary, int, error)
}
