package metrics

import (
	"errors"
	"fmt"
	"sort"

	"contagion-lab/internal/domain"
)

// Aggregation errors
var (
	ErrNoSeries         = errors.New("no series available for aggregation")
	ErrMismatchedSeries = errors.New("series do not share the same magnitudes")
)

// Aggregate computes the cross-seed distribution of a scenario's series.
// Every series must sweep the same magnitudes.
func Aggregate(scenario string, results []*domain.SeriesResult) (*domain.EnsembleAggregate, error) {
	if len(results) == 0 {
		return nil, ErrNoSeries
	}

	first := results[0]
	for _, r := range results[1:] {
		if len(r.Points) != len(first.Points) {
			return nil, fmt.Errorf("series %s has %d points, want %d: %w",
				r.SeriesID, len(r.Points), len(first.Points), ErrMismatchedSeries)
		}
		for i, p := range r.Points {
			if p.ShockMagnitude != first.Points[i].ShockMagnitude {
				return nil, fmt.Errorf("series %s point %d: %w", r.SeriesID, i, ErrMismatchedSeries)
			}
		}
	}

	agg := &domain.EnsembleAggregate{
		Scenario:  scenario,
		Policy:    first.Config.Params.Policy,
		ShockType: first.Config.ShockType,
		Runs:      len(results),
		Points:    make([]domain.EnsemblePoint, len(first.Points)),
	}

	nonConverged := 0
	for i := range first.Points {
		rates := make([]float64, len(results))
		point := domain.EnsemblePoint{ShockMagnitude: first.Points[i].ShockMagnitude}
		for k, r := range results {
			rates[k] = r.Points[i].DefaultRate
			if !r.Points[i].Converged {
				point.NonConverged++
			}
		}
		sort.Float64s(rates)

		point.DefaultRateMean = computeMean(rates)
		point.DefaultRateStddev = computeStddev(rates, point.DefaultRateMean)
		point.DefaultRateMedian = computePercentile(rates, 0.50)
		point.DefaultRateP10 = computePercentile(rates, 0.10)
		point.DefaultRateP90 = computePercentile(rates, 0.90)
		point.DefaultRateMin = rates[0]
		point.DefaultRateMax = rates[len(rates)-1]

		agg.Points[i] = point
		nonConverged += point.NonConverged
		if point.DefaultRateStddev > agg.MaxDispersion {
			agg.MaxDispersion = point.DefaultRateStddev
		}
	}

	if n := len(agg.Points); n > 0 {
		agg.FinalDefaultRateMean = agg.Points[n-1].DefaultRateMean
		agg.NonConvergedShare = float64(nonConverged) / float64(n*len(results))
	}

	var thresholds []float64
	for _, r := range results {
		if r.CriticalThreshold != nil {
			thresholds = append(thresholds, *r.CriticalThreshold)
		}
	}
	if len(thresholds) > 0 {
		sort.Float64s(thresholds)
		agg.ThresholdRuns = len(thresholds)
		agg.ThresholdMean = computeMean(thresholds)
		agg.ThresholdStddev = computeStddev(thresholds, agg.ThresholdMean)
		agg.ThresholdMedian = computePercentile(thresholds, 0.50)
	}

	return agg, nil
}
