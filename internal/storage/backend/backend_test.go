package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contagion-lab/internal/config"
	"contagion-lab/internal/domain"
	"contagion-lab/internal/logging"
)

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()

	stores, cleanup, err := Open(ctx, config.StorageConfig{Backend: config.BackendMemory}, logging.Discard())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, config.BackendMemory, stores.Backend)
	require.NotNil(t, stores.Runs)
	require.NotNil(t, stores.Series)
	require.NotNil(t, stores.Points)

	s := &domain.SeriesResult{SeriesID: "s1", Config: domain.SeriesConfig{Params: domain.NetworkParams{Policy: domain.PolicyTrivial}}}
	require.NoError(t, stores.Series.Insert(ctx, s))
	got, err := stores.Series.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SeriesID)
}

func TestOpen_EmptyBackendIsMemory(t *testing.T) {
	stores, cleanup, err := Open(context.Background(), config.StorageConfig{}, nil)
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, config.BackendMemory, stores.Backend)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, cleanup, err := Open(context.Background(), config.StorageConfig{Backend: "sqlite"}, nil)
	cleanup()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestOpen_PostgresBadDSN(t *testing.T) {
	_, cleanup, err := Open(context.Background(), config.StorageConfig{
		Backend:     config.BackendPostgres,
		PostgresDSN: "::not a dsn::",
	}, nil)
	cleanup()
	assert.Error(t, err)
}
