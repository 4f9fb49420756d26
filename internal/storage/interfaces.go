package storage

import (
	"context"

	"contagion-lab/internal/domain"
)

// RunStore provides access to simulation_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.SimulationRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error)

	// GetRecent retrieves up to limit runs, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.SimulationRun, error)
}

// SeriesStore provides access to shock_series storage, points included.
type SeriesStore interface {
	// Insert adds a new series with its points atomically.
	// Returns ErrDuplicateKey if series_id exists.
	Insert(ctx context.Context, s *domain.SeriesResult) error

	// GetByID retrieves a series by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, seriesID string) (*domain.SeriesResult, error)

	// GetByPolicy retrieves all series of a topology policy, ordered by created_at ASC.
	GetByPolicy(ctx context.Context, policy domain.Policy) ([]*domain.SeriesResult, error)
}

// SeriesPointStore provides access to series_points analytics storage.
type SeriesPointStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (series_id, point_index).
	InsertBulk(ctx context.Context, points []*domain.SeriesPointRecord) error

	// GetBySeriesID retrieves all points of a series, ordered by point_index ASC.
	GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.SeriesPointRecord, error)

	// GetByPolicy retrieves all points of a policy, ordered by (series_id, point_index).
	GetByPolicy(ctx context.Context, policy domain.Policy) ([]*domain.SeriesPointRecord, error)
}
