package reporting

import (
	"fmt"
	"strings"
)

// RenderPointsCSV renders series points as CSV string.
func RenderPointsCSV(r *SeriesReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("series_id,point_index,shock_magnitude,shock_measure,default_rate,default_count,iterations,converged\n")

	// Rows
	for i, p := range r.Series.Points {
		sb.WriteString(fmt.Sprintf("%s,%d,%.6f,%.6f,%.6f,%d,%d,%t\n",
			r.Series.SeriesID,
			i,
			p.ShockMagnitude,
			p.ShockMeasure,
			p.DefaultRate,
			p.DefaultCount,
			p.Iterations,
			p.Converged,
		))
	}

	return sb.String()
}

// RenderBanksCSV renders the balance-sheet table as CSV string.
func RenderBanksCSV(r *SimulationReport) string {
	var sb strings.Builder

	sb.WriteString("index,core,outside_asset,interbank_asset,outside_liability,interbank_liability,balance,defaulted,vulnerability\n")

	for _, b := range r.Banks {
		sb.WriteString(fmt.Sprintf("%d,%t,%s,%s,%s,%s,%s,%t,%.6f\n",
			b.Index,
			b.Core,
			amount(b.OutsideAsset),
			amount(b.InterbankAsset),
			amount(b.OutsideLiability),
			amount(b.InterbankLiability),
			amount(b.Balance),
			b.Defaulted,
			b.Vulnerability,
		))
	}

	return sb.String()
}

// RenderBatchCSV renders scenario rows as CSV string.
func RenderBatchCSV(r *BatchReport) string {
	var sb strings.Builder

	sb.WriteString("scenario,policy,shock_type,runs,threshold_runs,threshold_mean,threshold_stddev,")
	sb.WriteString("final_default_rate,non_converged_share,max_dispersion,verdict\n")

	for _, s := range r.Scenarios {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%s\n",
			s.Scenario,
			s.Policy,
			s.ShockType,
			s.Runs,
			s.ThresholdRuns,
			s.ThresholdMean,
			s.ThresholdStddev,
			s.FinalDefaultRate,
			s.NonConvergedShare,
			s.MaxDispersion,
			s.Verdict,
		))
	}

	return sb.String()
}
