package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contagion-lab/internal/decision"
	"contagion-lab/internal/domain"
	"contagion-lab/internal/series"
	"contagion-lab/internal/storage/memory"
)

func smallRandomScenario() domain.Scenario {
	s := domain.ScenarioSparseRandomNetwork
	s.Name = "small_random"
	s.Seeds = 3
	s.Series.Steps = 6
	return s
}

func TestOrchestrator_Run_NoScenarios(t *testing.T) {
	_, err := New(Options{}).Run(context.Background())
	assert.True(t, errors.Is(err, ErrNoScenarios))
}

func TestOrchestrator_Run_WritesReports(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seriesStore := memory.NewSeriesStore()

	orch := New(Options{
		Runner:    series.NewRunner(series.RunnerOptions{SeriesStore: seriesStore, Workers: 2}),
		Scenarios: []domain.Scenario{domain.ScenarioTrivialReference, smallRandomScenario()},
		OutputDir: dir,
	})
	orch.newJobID = func() string { return "job-1" }

	result, err := orch.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "job-1", result.JobID)
	require.Len(t, result.Scenarios, 2)

	trivial := result.Scenarios[0]
	assert.Equal(t, domain.ScenarioTrivial, trivial.Scenario)
	assert.Len(t, trivial.SeriesIDs, 1)
	// every bank fails from the first non-zero magnitude
	assert.Equal(t, decision.VerdictFragile, trivial.Decision.Verdict)
	assert.InDelta(t, 0.05, trivial.Aggregate.ThresholdMean, 1e-12)

	random := result.Scenarios[1]
	assert.Len(t, random.SeriesIDs, 3)
	assert.Equal(t, 3, random.Aggregate.Runs)

	// series were persisted through the runner
	for _, id := range random.SeriesIDs {
		_, err := seriesStore.GetByID(ctx, id)
		assert.NoError(t, err)
	}

	require.Len(t, result.Files, 4)
	for _, name := range []string{BatchMarkdownFile, BatchCSVFile, "trivial_resilience.md", "small_random_resilience.md"} {
		_, err := os.Stat(filepath.Join(dir, "job-1", name))
		assert.NoError(t, err, name)
	}

	md, err := os.ReadFile(filepath.Join(dir, "job-1", BatchMarkdownFile))
	require.NoError(t, err)
	assert.Contains(t, string(md), "| trivial | trivial | uniform | 1 |")
	assert.Equal(t, 2, len(result.Report.Scenarios))
}

func TestOrchestrator_Run_NoOutputDir(t *testing.T) {
	orch := New(Options{Scenarios: []domain.Scenario{domain.ScenarioTrivialReference}})

	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Files)
	require.NotNil(t, result.Report)
	assert.Len(t, result.Report.Scenarios, 1)
}

func TestOrchestrator_Run_ScenarioErrorDoesNotStopBatch(t *testing.T) {
	bad := domain.ScenarioTrivialReference
	bad.Name = "bad"
	bad.Series.Steps = 1

	orch := New(Options{Scenarios: []domain.Scenario{bad, domain.ScenarioTrivialReference}})

	result, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "ensemble bad:"))
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, domain.ScenarioTrivial, result.Scenarios[0].Scenario)
}

func TestOrchestrator_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{Scenarios: []domain.Scenario{domain.ScenarioTrivialReference}}).Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
