package verification

import (
	"context"
	"errors"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/series"
	"contagion-lab/internal/storage"
)

// ErrSeriesNotFound is returned when series ID doesn't exist.
var ErrSeriesNotFound = errors.New("series not found")

// ReplayVerifier implements Verifier interface.
type ReplayVerifier struct {
	seriesStore storage.SeriesStore
	runner      *series.Runner
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	SeriesStore storage.SeriesStore
	// Runner must not persist; defaults to a store-less runner.
	Runner *series.Runner
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	runner := opts.Runner
	if runner == nil {
		runner = series.NewRunner(series.RunnerOptions{})
	}
	return &ReplayVerifier{
		seriesStore: opts.SeriesStore,
		runner:      runner,
	}
}

// VerifySeries verifies a single series by replaying its sweep.
func (v *ReplayVerifier) VerifySeries(ctx context.Context, seriesID string) (*VerificationResult, error) {
	// 1. Load stored series
	stored, err := v.seriesStore.GetByID(ctx, seriesID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSeriesNotFound
		}
		return nil, err
	}

	// 2. Replay with the recorded configuration and seed
	replayed, err := v.runner.Run(ctx, stored.Config, nil)
	if err != nil {
		return nil, err
	}

	// 3. Compare results
	divergences := CompareSeries(stored, replayed)

	return &VerificationResult{
		SeriesID:    seriesID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}, nil
}

// VerifyPolicy verifies all stored series of a policy.
func (v *ReplayVerifier) VerifyPolicy(ctx context.Context, policy domain.Policy) (*VerificationReport, error) {
	all, err := v.seriesStore.GetByPolicy(ctx, policy)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalSeries: len(all),
		Results:     make([]VerificationResult, 0, len(all)),
	}

	for _, s := range all {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := v.VerifySeries(ctx, s.SeriesID)
		if err != nil {
			// Record error as divergence
			report.Results = append(report.Results, VerificationResult{
				SeriesID: s.SeriesID,
				Match:    false,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentSeries++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedSeries++
		} else {
			report.DivergentSeries++
		}
	}

	return report, nil
}
