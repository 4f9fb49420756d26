package memory

import (
	"context"
	"sort"
	"sync"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SimulationRun // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.SimulationRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, r *domain.SimulationRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = cloneRun(r)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.SimulationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRun(r), nil
}

// GetRecent retrieves up to limit runs, newest first.
func (s *RunStore) GetRecent(_ context.Context, limit int) ([]*domain.SimulationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SimulationRun, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, cloneRun(r))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].RunID < result[j].RunID
	})

	if limit >= 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.RunStore = (*RunStore)(nil)
