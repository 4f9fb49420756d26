package decision

import (
	"errors"

	"contagion-lab/internal/domain"
)

// ErrEmptyAggregate is returned when an aggregate has no runs or points.
var ErrEmptyAggregate = errors.New("aggregate has no runs")

// Build creates DecisionInput from an ensemble aggregate.
// smallShock bounds the magnitudes inspected for the collapse trigger.
func Build(agg *domain.EnsembleAggregate, smallShock float64) (*DecisionInput, error) {
	if agg == nil || agg.Runs == 0 || len(agg.Points) == 0 {
		return nil, ErrEmptyAggregate
	}

	input := &DecisionInput{
		Scenario:          agg.Scenario,
		Runs:              agg.Runs,
		HasThreshold:      agg.ThresholdRuns > 0,
		ThresholdMean:     agg.ThresholdMean,
		FinalDefaultRate:  agg.FinalDefaultRateMean,
		NonConvergedShare: agg.NonConvergedShare,
		MaxDispersion:     agg.MaxDispersion,
	}
	if agg.Points[0].ShockMagnitude == 0 {
		input.BaselineDefaultRate = agg.Points[0].DefaultRateMean
	}

	for _, p := range agg.Points {
		if p.ShockMagnitude <= smallShock && p.DefaultRateMean > input.SmallShockDefaultRate {
			input.SmallShockDefaultRate = p.DefaultRateMean
		}
	}

	return input, nil
}
