// Package backend opens the storage backend selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"contagion-lab/internal/config"
	"contagion-lab/internal/logging"
	"contagion-lab/internal/storage"
	chstore "contagion-lab/internal/storage/clickhouse"
	"contagion-lab/internal/storage/memory"
	"contagion-lab/internal/storage/migrations"
	pgstore "contagion-lab/internal/storage/postgres"
)

// Stores holds the stores of one backend.
type Stores struct {
	Backend string
	Runs    storage.RunStore
	Series  storage.SeriesStore
	Points  storage.SeriesPointStore
}

// Open connects the configured backend. The returned cleanup closes every
// connection and is safe to call when Open fails.
//
// memory keeps everything in process. postgres stores runs and series in
// PostgreSQL and series points in ClickHouse, applying the embedded
// migrations first when cfg.Migrate is set.
func Open(ctx context.Context, cfg config.StorageConfig, logger logrus.FieldLogger) (*Stores, func(), error) {
	log := logging.Component(logger, "storage")

	switch cfg.Backend {
	case "", config.BackendMemory:
		log.Info("using in-memory storage")
		return &Stores{
			Backend: config.BackendMemory,
			Runs:    memory.NewRunStore(),
			Series:  memory.NewSeriesStore(),
			Points:  memory.NewSeriesPointStore(),
		}, func() {}, nil

	case config.BackendPostgres:
		return openPostgres(ctx, cfg, log)

	default:
		return nil, func() {}, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

func openPostgres(ctx context.Context, cfg config.StorageConfig, log logrus.FieldLogger) (*Stores, func(), error) {
	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, func() {}, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Migrate {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		log.WithField("migrations", applied).Info("postgres migrations applied")
	}

	// ClickHouse
	var chConn *chstore.Conn
	if cfg.Migrate {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	} else {
		chConn, err = chstore.NewConn(ctx, cfg.ClickHouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, func() {}, fmt.Errorf("connect to clickhouse: %w", err)
	}

	cleanup := func() {
		if err := chConn.Close(); err != nil {
			log.WithError(err).Warn("close clickhouse connection")
		}
		pool.Close()
	}

	log.Info("using postgres + clickhouse storage")
	return &Stores{
		Backend: config.BackendPostgres,
		Runs:    pgstore.NewRunStore(pool),
		Series:  pgstore.NewSeriesStore(pool),
		Points:  chstore.NewSeriesPointStore(chConn),
	}, cleanup, nil
}
