package memory

import "contagion-lab/internal/domain"

// Stored records hold slices, so a struct copy is not enough to keep
// callers from mutating store state.

func cloneRun(r *domain.SimulationRun) *domain.SimulationRun {
	out := *r
	out.Result = cloneResult(r.Result)
	return &out
}

func cloneResult(r domain.SimulationResult) domain.SimulationResult {
	out := r
	if r.FinalPayments != nil {
		out.FinalPayments = append([]float64(nil), r.FinalPayments...)
	}
	out.Steps = make([]domain.SimulationStep, len(r.Steps))
	for i, s := range r.Steps {
		out.Steps[i] = s
		out.Steps[i].DefaultVector = append([]bool(nil), s.DefaultVector...)
	}
	return out
}

func cloneSeries(s *domain.SeriesResult) *domain.SeriesResult {
	out := *s
	out.Points = append([]domain.SeriesPoint(nil), s.Points...)
	out.Variations = append([]domain.Variation(nil), s.Variations...)
	if s.CriticalThreshold != nil {
		v := *s.CriticalThreshold
		out.CriticalThreshold = &v
	}
	return &out
}
