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

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const selectRuns = `
	SELECT run_id, params, shock, max_iterations, result, created_at
	FROM simulation_runs
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.SimulationRun) (err error) {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("insert_run", start, err) }()

	params, err := jsonb("params", r.Params)
	if err != nil {
		return err
	}
	shock, err := jsonb("shock", r.Shock)
	if err != nil {
		return err
	}
	result, err := jsonb("result", r.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO simulation_runs (
			run_id, policy, params, shock, max_iterations, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, string(r.Params.Policy), params, shock, r.MaxIterations, result, r.CreatedAt,
	)
	return translate("insert simulation run", err)
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (r *domain.SimulationRun, err error) {
	start := time.Now()
	defer func() { observe("get_run", start, err) }()

	r, err = scanRun(s.pool.QueryRow(ctx, selectRuns+` WHERE run_id = $1`, runID))
	if err != nil {
		return nil, translate("get simulation run by id", err)
	}
	return r, nil
}

// GetRecent retrieves up to limit runs, newest first.
func (s *RunStore) GetRecent(ctx context.Context, limit int) (out []*domain.SimulationRun, err error) {
	if limit <= 0 {
		return nil, nil
	}
	start := time.Now()
	defer func() { observe("get_recent_runs", start, err) }()

	rows, err := s.pool.Query(ctx, selectRuns+`
		ORDER BY created_at DESC, run_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulation run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation runs: %w", err)
	}
	return out, nil
}

func scanRun(row pgx.Row) (*domain.SimulationRun, error) {
	var (
		r                     domain.SimulationRun
		params, shock, result []byte
	)
	if err := row.Scan(&r.RunID, &params, &shock, &r.MaxIterations, &result, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(params, &r.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if err := json.Unmarshal(shock, &r.Shock); err != nil {
		return nil, fmt.Errorf("unmarshal shock: %w", err)
	}
	if err := json.Unmarshal(result, &r.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
