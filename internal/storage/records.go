package storage

import "contagion-lab/internal/domain"

// PointRecords flattens a series into analytics rows.
func PointRecords(s *domain.SeriesResult) []*domain.SeriesPointRecord {
	out := make([]*domain.SeriesPointRecord, len(s.Points))
	for i, p := range s.Points {
		out[i] = &domain.SeriesPointRecord{
			SeriesID:    s.SeriesID,
			PointIndex:  i,
			Policy:      s.Config.Params.Policy,
			ShockType:   s.Config.ShockType,
			Seed:        s.Config.Params.Seed,
			SeriesPoint: p,
		}
	}
	return out
}
