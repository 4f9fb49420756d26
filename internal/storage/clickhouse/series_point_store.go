package clickhouse

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/storage"
)

// SeriesPointStore implements storage.SeriesPointStore using ClickHouse.
type SeriesPointStore struct {
	conn *Conn
}

// NewSeriesPointStore creates a new SeriesPointStore.
func NewSeriesPointStore(conn *Conn) *SeriesPointStore {
	return &SeriesPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SeriesPointStore = (*SeriesPointStore)(nil)

const selectPoints = `
	SELECT
		series_id, point_index, policy, shock_type, seed,
		shock_magnitude, shock_measure, default_rate, default_count,
		iterations, converged
	FROM series_points FINAL
`

// InsertBulk adds multiple points. Fails entire batch on any duplicate.
func (s *SeriesPointStore) InsertBulk(ctx context.Context, points []*domain.SeriesPointRecord) (err error) {
	if len(points) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("insert_series_points", start, err) }()

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(points))
	series := make(map[string]struct{})
	for _, p := range points {
		if p == nil || p.SeriesID == "" {
			return storage.ErrInvalidInput
		}
		key := p.SeriesID + "|" + strconv.Itoa(p.PointIndex)
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
		series[p.SeriesID] = struct{}{}
	}

	// Check for duplicates against existing rows
	for id := range series {
		existing, err := s.indexes(ctx, id)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, idx := range existing {
			if _, clash := seen[id+"|"+strconv.Itoa(idx)]; clash {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO series_points (
			series_id, point_index, policy, shock_type, seed,
			shock_magnitude, shock_measure, default_rate, default_count,
			iterations, converged
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.SeriesID, uint32(p.PointIndex), string(p.Policy), string(p.ShockType), p.Seed,
			p.ShockMagnitude, p.ShockMeasure, p.DefaultRate, uint32(p.DefaultCount),
			uint32(p.Iterations), p.Converged,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetBySeriesID retrieves all points of a series, ordered by point_index ASC.
func (s *SeriesPointStore) GetBySeriesID(ctx context.Context, seriesID string) (out []*domain.SeriesPointRecord, err error) {
	start := time.Now()
	defer func() { observe("get_series_points", start, err) }()

	return s.query(ctx, selectPoints+`
		WHERE series_id = ?
		ORDER BY point_index ASC
	`, seriesID)
}

// GetByPolicy retrieves all points of a policy, ordered by (series_id, point_index).
func (s *SeriesPointStore) GetByPolicy(ctx context.Context, policy domain.Policy) (out []*domain.SeriesPointRecord, err error) {
	start := time.Now()
	defer func() { observe("get_policy_points", start, err) }()

	return s.query(ctx, selectPoints+`
		WHERE policy = ?
		ORDER BY series_id ASC, point_index ASC
	`, string(policy))
}

func (s *SeriesPointStore) query(ctx context.Context, query string, args ...interface{}) ([]*domain.SeriesPointRecord, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query series points: %w", err)
	}
	defer rows.Close()

	var result []*domain.SeriesPointRecord
	for rows.Next() {
		var (
			p                                    domain.SeriesPointRecord
			policy, shockType                    string
			pointIndex, defaultCount, iterations uint32
		)
		if err := rows.Scan(
			&p.SeriesID, &pointIndex, &policy, &shockType, &p.Seed,
			&p.ShockMagnitude, &p.ShockMeasure, &p.DefaultRate, &defaultCount,
			&iterations, &p.Converged,
		); err != nil {
			return nil, fmt.Errorf("scan series point: %w", err)
		}
		p.PointIndex = int(pointIndex)
		p.Policy = domain.Policy(policy)
		p.ShockType = domain.ShockType(shockType)
		p.DefaultCount = int(defaultCount)
		p.Iterations = int(iterations)
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series points: %w", err)
	}
	return result, nil
}

// indexes returns the stored point indexes of a series.
func (s *SeriesPointStore) indexes(ctx context.Context, seriesID string) ([]int, error) {
	rows, err := s.conn.Query(ctx, `SELECT point_index FROM series_points FINAL WHERE series_id = ?`, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var idx uint32
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		out = append(out, int(idx))
	}
	return out, rows.Err()
}
