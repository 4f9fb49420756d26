// Package verification re-runs stored shock series and checks that the
// engine reproduces them from their recorded parameters and seed.
package verification

import (
	"context"
	"fmt"
	"math"

	"contagion-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      `json:"field"`
	Expected interface{} `json:"expected"` // stored value
	Actual   interface{} `json:"actual"`   // replayed value
}

// VerificationResult contains the result of verifying a single series.
type VerificationResult struct {
	SeriesID    string            `json:"series_id"`
	Match       bool              `json:"match"`
	Divergences []FieldDivergence `json:"divergences,omitempty"`
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalSeries     int                  `json:"total_series"`
	MatchedSeries   int                  `json:"matched_series"`
	DivergentSeries int                  `json:"divergent_series"`
	Results         []VerificationResult `json:"results"`
}

// Verifier re-executes stored series.
type Verifier interface {
	// VerifySeries loads a stored series, re-runs it with the same
	// configuration and compares every point.
	VerifySeries(ctx context.Context, seriesID string) (*VerificationResult, error)

	// VerifyPolicy verifies all stored series of a topology policy.
	VerifyPolicy(ctx context.Context, policy domain.Policy) (*VerificationReport, error)
}

// CompareSeries compares two series results and returns divergences.
// Uses FloatTolerance for float64 comparisons.
func CompareSeries(stored, replayed *domain.SeriesResult) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	if stored.SeriesID != replayed.SeriesID {
		add("SeriesID", stored.SeriesID, replayed.SeriesID)
	}

	if len(stored.Points) != len(replayed.Points) {
		add("Points", len(stored.Points), len(replayed.Points))
		return divergences
	}

	for i := range stored.Points {
		s, r := stored.Points[i], replayed.Points[i]
		prefix := fmt.Sprintf("Points[%d].", i)

		if !floatEquals(s.ShockMagnitude, r.ShockMagnitude) {
			add(prefix+"ShockMagnitude", s.ShockMagnitude, r.ShockMagnitude)
		}
		if !floatEquals(s.ShockMeasure, r.ShockMeasure) {
			add(prefix+"ShockMeasure", s.ShockMeasure, r.ShockMeasure)
		}
		if !floatEquals(s.DefaultRate, r.DefaultRate) {
			add(prefix+"DefaultRate", s.DefaultRate, r.DefaultRate)
		}
		if s.DefaultCount != r.DefaultCount {
			add(prefix+"DefaultCount", s.DefaultCount, r.DefaultCount)
		}
		if s.Iterations != r.Iterations {
			add(prefix+"Iterations", s.Iterations, r.Iterations)
		}
		if s.Converged != r.Converged {
			add(prefix+"Converged", s.Converged, r.Converged)
		}
	}

	if !floatPtrEquals(stored.CriticalThreshold, replayed.CriticalThreshold) {
		add("CriticalThreshold", derefOrNil(stored.CriticalThreshold), derefOrNil(replayed.CriticalThreshold))
	}
	if stored.ThresholdMethod != replayed.ThresholdMethod {
		add("ThresholdMethod", stored.ThresholdMethod, replayed.ThresholdMethod)
	}
	if stored.NonConverged != replayed.NonConverged {
		add("NonConverged", stored.NonConverged, replayed.NonConverged)
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// floatPtrEquals compares two *float64 values within FloatTolerance.
// Returns true if both are nil, or both are non-nil and equal.
func floatPtrEquals(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return floatEquals(*a, *b)
}

func derefOrNil(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
