// Package costfile implements the cost store port on the local filesystem,
// one JSON file per project.
package costfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloutagent/cloutagent/internal/domain"
	"github.com/cloutagent/cloutagent/internal/domain/cost"
)

// Store persists project cost records under dir as ${projectId}.json.
type Store struct {
	dir string
}

// NewStore creates a file-backed cost store rooted at dir. The directory is
// created on first save, not here.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Load reads a project's record. Missing or unparseable files are reported
// as domain.ErrNotFound so callers treat them as "no cost yet".
func (s *Store) Load(_ context.Context, projectID string) (*cost.ProjectCosts, error) {
	data, err := os.ReadFile(s.path(projectID))
	if err != nil {
		return nil, fmt.Errorf("%w: project costs %s", domain.ErrNotFound, projectID)
	}

	var pc cost.ProjectCosts
	if err := json.Unmarshal(data, &pc); err != nil {
		// Corrupted record reads as absent; the next save overwrites it.
		return nil, fmt.Errorf("%w: project costs %s unreadable", domain.ErrNotFound, projectID)
	}
	if pc.Executions == nil {
		pc.Executions = make(map[string]cost.ExecutionRecord)
	}
	return &pc, nil
}

// Save atomically overwrites the project's record using a temp file rename.
func (s *Store) Save(_ context.Context, projectID string, data *cost.ProjectCosts) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create costs dir: %w", err)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project costs: %w", err)
	}

	target := s.path(projectID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o640); err != nil {
		return fmt.Errorf("write project costs: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename project costs: %w", err)
	}
	return nil
}

func (s *Store) path(projectID string) string {
	return filepath.Join(s.dir, projectID+".json")
}
