package series

import "contagion-lab/internal/domain"

// inflectionMinDefaultRate is the default rate a point must exceed to be
// reported as an inflection threshold.
const inflectionMinDefaultRate = 0.1

// Magnitudes returns steps evenly spaced shock magnitudes in
// [0, maxMagnitude], both ends included.
func Magnitudes(maxMagnitude float64, steps int) []float64 {
	out := make([]float64, steps)
	for i := range steps {
		out[i] = maxMagnitude * float64(i) / float64(steps-1)
	}
	out[steps-1] = maxMagnitude
	return out
}

// Variations returns the default-rate change between consecutive points.
func Variations(points []domain.SeriesPoint) []domain.Variation {
	if len(points) < 2 {
		return nil
	}
	out := make([]domain.Variation, len(points)-1)
	for i := 1; i < len(points); i++ {
		out[i-1] = domain.Variation{
			From:  points[i-1].ShockMagnitude,
			To:    points[i].ShockMagnitude,
			Delta: points[i].DefaultRate - points[i-1].DefaultRate,
		}
	}
	return out
}

// DetectCriticalThreshold locates the shock magnitude where defaults take off.
//
// The first interior point whose incoming slope is below its outgoing slope
// and whose default rate exceeds 10% is the inflection threshold. Without
// one, the midpoint of the largest positive variation is used. A flat curve
// has no threshold (ok=false).
func DetectCriticalThreshold(points []domain.SeriesPoint) (threshold float64, method string, ok bool) {
	for i := 1; i < len(points)-1; i++ {
		dx1 := points[i].ShockMagnitude - points[i-1].ShockMagnitude
		dx2 := points[i+1].ShockMagnitude - points[i].ShockMagnitude
		if dx1 <= 0 || dx2 <= 0 {
			continue
		}
		slope1 := (points[i].DefaultRate - points[i-1].DefaultRate) / dx1
		slope2 := (points[i+1].DefaultRate - points[i].DefaultRate) / dx2
		if slope1 < slope2 && points[i].DefaultRate > inflectionMinDefaultRate {
			return points[i].ShockMagnitude, domain.ThresholdInflection, true
		}
	}

	best, bestDelta := -1, 0.0
	for i, v := range Variations(points) {
		if v.Delta > bestDelta {
			best, bestDelta = i, v.Delta
		}
	}
	if best < 0 {
		return 0, domain.ThresholdNone, false
	}
	return (points[best].ShockMagnitude + points[best+1].ShockMagnitude) / 2, domain.ThresholdPeakVariation, true
}
