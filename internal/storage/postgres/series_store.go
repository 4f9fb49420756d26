package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/storage"
)

// SeriesStore implements storage.SeriesStore using PostgreSQL.
// Headers live in shock_series, points in shock_series_points.
type SeriesStore struct {
	pool *Pool
}

// NewSeriesStore creates a new SeriesStore.
func NewSeriesStore(pool *Pool) *SeriesStore {
	return &SeriesStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

const selectSeries = `
	SELECT series_id, config, variations, critical_threshold, threshold_method, non_converged, created_at
	FROM shock_series
`

// Insert adds a series and its points in one transaction.
// Returns ErrDuplicateKey if series_id exists.
func (s *SeriesStore) Insert(ctx context.Context, sr *domain.SeriesResult) (err error) {
	if sr == nil || sr.SeriesID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("insert_series", start, err) }()

	config, err := jsonb("config", sr.Config)
	if err != nil {
		return err
	}
	variations, err := jsonb("variations", sr.Variations)
	if err != nil {
		return err
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO shock_series (
				series_id, policy, shock_type, config, variations,
				critical_threshold, threshold_method, non_converged, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			sr.SeriesID, string(sr.Config.Params.Policy), string(sr.Config.ShockType), config, variations,
			sr.CriticalThreshold, sr.ThresholdMethod, sr.NonConverged, sr.CreatedAt,
		)
		if err != nil {
			return translate("insert shock series", err)
		}

		// one round trip for all points
		batch := &pgx.Batch{}
		for i, p := range sr.Points {
			batch.Queue(`
				INSERT INTO shock_series_points (
					series_id, point_index, shock_magnitude, shock_measure,
					default_rate, default_count, iterations, converged
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`,
				sr.SeriesID, i, p.ShockMagnitude, p.ShockMeasure,
				p.DefaultRate, p.DefaultCount, p.Iterations, p.Converged,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		return translate("insert shock series points", tx.SendBatch(ctx, batch).Close())
	})
}

// GetByID retrieves a series with its points. Returns ErrNotFound if not exists.
func (s *SeriesStore) GetByID(ctx context.Context, seriesID string) (sr *domain.SeriesResult, err error) {
	start := time.Now()
	defer func() { observe("get_series", start, err) }()

	sr, err = scanSeries(s.pool.QueryRow(ctx, selectSeries+` WHERE series_id = $1`, seriesID))
	if err != nil {
		return nil, translate("get shock series by id", err)
	}

	points, err := s.points(ctx, []string{seriesID})
	if err != nil {
		return nil, err
	}
	sr.Points = points[seriesID]
	return sr, nil
}

// GetByPolicy retrieves all series of a policy, ordered by created_at ASC.
func (s *SeriesStore) GetByPolicy(ctx context.Context, policy domain.Policy) (out []*domain.SeriesResult, err error) {
	start := time.Now()
	defer func() { observe("get_series_by_policy", start, err) }()

	rows, err := s.pool.Query(ctx, selectSeries+`
		WHERE policy = $1
		ORDER BY created_at ASC, series_id ASC
	`, string(policy))
	if err != nil {
		return nil, fmt.Errorf("query shock series: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		sr, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shock series: %w", err)
		}
		out = append(out, sr)
		ids = append(ids, sr.SeriesID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shock series: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	points, err := s.points(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, sr := range out {
		sr.Points = points[sr.SeriesID]
	}
	return out, nil
}

// points loads the points of several series keyed by series_id.
func (s *SeriesStore) points(ctx context.Context, seriesIDs []string) (map[string][]domain.SeriesPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT series_id, shock_magnitude, shock_measure, default_rate, default_count, iterations, converged
		FROM shock_series_points
		WHERE series_id = ANY($1)
		ORDER BY series_id ASC, point_index ASC
	`, seriesIDs)
	if err != nil {
		return nil, fmt.Errorf("query shock series points: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.SeriesPoint, len(seriesIDs))
	for rows.Next() {
		var (
			id string
			p  domain.SeriesPoint
		)
		if err := rows.Scan(&id, &p.ShockMagnitude, &p.ShockMeasure, &p.DefaultRate, &p.DefaultCount, &p.Iterations, &p.Converged); err != nil {
			return nil, fmt.Errorf("scan shock series point: %w", err)
		}
		out[id] = append(out[id], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shock series points: %w", err)
	}
	return out, nil
}

func scanSeries(row pgx.Row) (*domain.SeriesResult, error) {
	var (
		sr                 domain.SeriesResult
		config, variations []byte
	)
	if err := row.Scan(&sr.SeriesID, &config, &variations, &sr.CriticalThreshold, &sr.ThresholdMethod, &sr.NonConverged, &sr.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(config, &sr.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := json.Unmarshal(variations, &sr.Variations); err != nil {
		return nil, fmt.Errorf("unmarshal variations: %w", err)
	}
	sr.CreatedAt = sr.CreatedAt.UTC()
	return &sr, nil
}
