package memory

import (
	"context"
	"sort"
	"sync"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/storage"
)

type pointKey struct {
	seriesID string
	index    int
}

// SeriesPointStore is an in-memory implementation of storage.SeriesPointStore.
type SeriesPointStore struct {
	mu   sync.RWMutex
	data map[pointKey]*domain.SeriesPointRecord
}

// NewSeriesPointStore creates a new in-memory series point store.
func NewSeriesPointStore() *SeriesPointStore {
	return &SeriesPointStore{
		data: make(map[pointKey]*domain.SeriesPointRecord),
	}
}

// InsertBulk adds multiple points atomically. Fails entire batch on any duplicate.
func (s *SeriesPointStore) InsertBulk(_ context.Context, points []*domain.SeriesPointRecord) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[pointKey]struct{}, len(points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil || p.SeriesID == "" {
			return storage.ErrInvalidInput
		}
		key := pointKey{p.SeriesID, p.PointIndex}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		copy := *p
		s.data[pointKey{p.SeriesID, p.PointIndex}] = &copy
	}

	return nil
}

// GetBySeriesID retrieves all points of a series, ordered by point_index ASC.
func (s *SeriesPointStore) GetBySeriesID(_ context.Context, seriesID string) ([]*domain.SeriesPointRecord, error) {
	return s.filter(func(p *domain.SeriesPointRecord) bool { return p.SeriesID == seriesID }), nil
}

// GetByPolicy retrieves all points of a policy, ordered by (series_id, point_index).
func (s *SeriesPointStore) GetByPolicy(_ context.Context, policy domain.Policy) ([]*domain.SeriesPointRecord, error) {
	return s.filter(func(p *domain.SeriesPointRecord) bool { return p.Policy == policy }), nil
}

func (s *SeriesPointStore) filter(keep func(*domain.SeriesPointRecord) bool) []*domain.SeriesPointRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SeriesPointRecord
	for _, p := range s.data {
		if keep(p) {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SeriesID != result[j].SeriesID {
			return result[i].SeriesID < result[j].SeriesID
		}
		return result[i].PointIndex < result[j].PointIndex
	})
	return result
}

var _ storage.SeriesPointStore = (*SeriesPointStore)(nil)
