package memory

import (
	"context"
	"sort"
	"sync"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/storage"
)

// SeriesStore is an in-memory implementation of storage.SeriesStore.
type SeriesStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SeriesResult // keyed by series_id
}

// NewSeriesStore creates a new in-memory series store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{
		data: make(map[string]*domain.SeriesResult),
	}
}

// Insert adds a new series. Returns ErrDuplicateKey if series_id exists.
func (s *SeriesStore) Insert(_ context.Context, sr *domain.SeriesResult) error {
	if sr == nil || sr.SeriesID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sr.SeriesID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[sr.SeriesID] = cloneSeries(sr)
	return nil
}

// GetByID retrieves a series by its ID. Returns ErrNotFound if not exists.
func (s *SeriesStore) GetByID(_ context.Context, seriesID string) (*domain.SeriesResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, exists := s.data[seriesID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneSeries(sr), nil
}

// GetByPolicy retrieves all series of a policy, ordered by created_at ASC.
func (s *SeriesStore) GetByPolicy(_ context.Context, policy domain.Policy) ([]*domain.SeriesResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SeriesResult
	for _, sr := range s.data {
		if sr.Config.Params.Policy == policy {
			result = append(result, cloneSeries(sr))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].SeriesID < result[j].SeriesID
	})

	return result, nil
}

var _ storage.SeriesStore = (*SeriesStore)(nil)
