package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/storage"
)

func createTestSeries(seriesID string, policy domain.Policy, createdAt time.Time) *domain.SeriesResult {
	return &domain.SeriesResult{
		SeriesID: seriesID,
		Config: domain.SeriesConfig{
			Params:        domain.NetworkParams{Policy: policy, Nodes: 10, Seed: 3},
			ShockType:     domain.ShockUniform,
			Target:        -1,
			MaxMagnitude:  1,
			Steps:         3,
			MaxIterations: 100,
		},
		Points: []domain.SeriesPoint{
			{ShockMagnitude: 0, Converged: true},
			{ShockMagnitude: 0.5, ShockMeasure: 0.5, DefaultRate: 0.3, DefaultCount: 3, Iterations: 8, Converged: true},
			{ShockMagnitude: 1, ShockMeasure: 1, DefaultRate: 1, DefaultCount: 10, Iterations: 100, Converged: false},
		},
		Variations: []domain.Variation{
			{From: 0, To: 0.5, Delta: 0.3},
			{From: 0.5, To: 1, Delta: 0.7},
		},
		CriticalThreshold: ptr(0.75),
		ThresholdMethod:   domain.ThresholdPeakVariation,
		NonConverged:      1,
		CreatedAt:         createdAt,
	}
}

func TestSeriesStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSeriesStore(pool)

	series := createTestSeries("series-001", domain.PolicyRandom, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Insert(ctx, series))

	retrieved, err := store.GetByID(ctx, "series-001")
	require.NoError(t, err)
	assert.Equal(t, series, retrieved)
}

func TestSeriesStore_NilThreshold(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSeriesStore(pool)

	series := createTestSeries("flat", domain.PolicyTrivial, time.Now().UTC().Truncate(time.Microsecond))
	series.CriticalThreshold = nil
	series.ThresholdMethod = domain.ThresholdNone
	require.NoError(t, store.Insert(ctx, series))

	retrieved, err := store.GetByID(ctx, "flat")
	require.NoError(t, err)
	assert.Nil(t, retrieved.CriticalThreshold)
	assert.Equal(t, domain.ThresholdNone, retrieved.ThresholdMethod)
}

func TestSeriesStore_DuplicateRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSeriesStore(pool)

	series := createTestSeries("dup", domain.PolicyRandom, time.Now().UTC())
	require.NoError(t, store.Insert(ctx, series))

	err := store.Insert(ctx, series)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	retrieved, err := store.GetByID(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, retrieved.Points, 3)
}

func TestSeriesStore_GetByPolicy(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSeriesStore(pool)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, createTestSeries("r2", domain.PolicyRandom, base.Add(time.Hour))))
	require.NoError(t, store.Insert(ctx, createTestSeries("r1", domain.PolicyRandom, base)))
	require.NoError(t, store.Insert(ctx, createTestSeries("t1", domain.PolicyTrivial, base)))

	random, err := store.GetByPolicy(ctx, domain.PolicyRandom)
	require.NoError(t, err)
	require.Len(t, random, 2)
	assert.Equal(t, "r1", random[0].SeriesID)
	assert.Equal(t, "r2", random[1].SeriesID)
	assert.Len(t, random[1].Points, 3)

	cp, err := store.GetByPolicy(ctx, domain.PolicyCorePeriphery)
	require.NoError(t, err)
	assert.Empty(t, cp)
}
