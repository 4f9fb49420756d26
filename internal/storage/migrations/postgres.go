package migrations

import (
	"context"
	"fmt"

	"contagion-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order and
// returns the applied file names. Migrations are idempotent.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(files))
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		applied = append(applied, m.Name)
	}
	return applied, nil
}
