// Package historyfile implements the execution history port on the local
// filesystem: projects/{projectId}/executions/{executionId}.json.
package historyfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cloutagent/cloutagent/internal/domain"
	"github.com/cloutagent/cloutagent/internal/domain/execution"
	"github.com/cloutagent/cloutagent/internal/port/historystore"
)

// maxConcurrentReads caps parallel file loads during a listing.
const maxConcurrentReads = 8

// Store persists execution records under root/{projectId}/executions/.
type Store struct {
	root string
}

// NewStore creates a file-backed history store rooted at root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Save writes the record atomically (temp file + rename).
func (s *Store) Save(_ context.Context, rec *execution.Record) error {
	dir := s.executionsDir(rec.ProjectID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create executions dir: %w", err)
	}

	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal execution: %w", err)
	}

	target := filepath.Join(dir, rec.ID+".json")
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o640); err != nil {
		return fmt.Errorf("write execution: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("rename execution: %w", err)
	}
	return nil
}

// Get returns one record, or domain.ErrNotFound.
func (s *Store) Get(_ context.Context, projectID, executionID string) (*execution.Record, error) {
	data, err := os.ReadFile(filepath.Join(s.executionsDir(projectID), executionID+".json"))
	if err != nil {
		return nil, fmt.Errorf("%w: execution %s", domain.ErrNotFound, executionID)
	}

	var rec execution.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal execution %s: %w", executionID, err)
	}
	return &rec, nil
}

// List returns summaries newest-first with pagination and optional status
// filtering, plus the total count before pagination.
func (s *Store) List(ctx context.Context, projectID string, opts historystore.ListOptions) ([]execution.Summary, int, error) {
	dir := s.executionsDir(projectID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []execution.Summary{}, 0, nil
		}
		return nil, 0, fmt.Errorf("read executions dir: %w", err)
	}

	var (
		mu        sync.Mutex
		summaries []execution.Summary
	)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			var rec execution.Record
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("unmarshal %s: %w", name, err)
			}
			mu.Lock()
			summaries = append(summaries, rec.Summarize())
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	if opts.Status != "" {
		filtered := summaries[:0]
		for _, sum := range summaries {
			if sum.Status == opts.Status {
				filtered = append(filtered, sum)
			}
		}
		summaries = filtered
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})

	total := len(summaries)

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return summaries[offset:end], total, nil
}

func (s *Store) executionsDir(projectID string) string {
	return filepath.Join(s.root, projectID, "executions")
}
