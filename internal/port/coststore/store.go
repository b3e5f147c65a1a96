// Package coststore defines the port for durable per-project cost records.
package coststore

import (
	"context"

	"github.com/cloutagent/cloutagent/internal/domain/cost"
)

// Store persists one cost record per project. Implementations overwrite the
// whole record on save; serialization of read-modify-write cycles is the
// caller's responsibility.
type Store interface {
	// Load returns the project's record, or domain.ErrNotFound when no
	// readable record exists. A corrupted record is reported as not found,
	// never as a fatal error.
	Load(ctx context.Context, projectID string) (*cost.ProjectCosts, error)

	// Save atomically overwrites the project's record.
	Save(ctx context.Context, projectID string, data *cost.ProjectCosts) error
}
