// Package memory provides an in-memory run store for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/runner"
)

// RunStore keeps run metadata in a map.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]runner.Run
}

// NewRunStore constructs a RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]runner.Run)}
}

// StartRun stores a new run.
func (s *RunStore) StartRun(_ context.Context, run runner.Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// FinishRun records the final status and counters of a run.
func (s *RunStore) FinishRun(_ context.Context, run runner.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.runs[run.ID]
	if !ok {
		return fmt.Errorf("%w: %s", runner.ErrRunNotFound, run.ID)
	}
	stored.Status = run.Status
	stored.FinishedAt = run.FinishedAt
	stored.RecordCount = run.RecordCount
	stored.ErrorText = run.ErrorText
	s.runs[run.ID] = stored
	return nil
}

// GetRun returns a run by ID.
func (s *RunStore) GetRun(_ context.Context, id string) (runner.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return runner.Run{}, fmt.Errorf("%w: %s", runner.ErrRunNotFound, id)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. An empty job matches all
// jobs; a non-positive limit returns every match.
func (s *RunStore) ListRuns(_ context.Context, job string, limit int) ([]runner.Run, error) {
	s.mu.RLock()
	out := make([]runner.Run, 0, len(s.runs))
	for _, r := range s.runs {
		if job == "" || r.Job == job {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
