package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// amountPlaces is the fixed precision of rendered balance-sheet amounts.
const amountPlaces = 2

// amount renders a balance-sheet value with fixed precision.
func amount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(amountPlaces)
}

// RenderSimulationMarkdown renders a simulation report as Markdown string.
func RenderSimulationMarkdown(r *SimulationReport) string {
	var sb strings.Builder
	run := r.Run
	res := run.Result

	// Header
	sb.WriteString("# Simulation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s` | Policy: %s | Seed: %d\n\n", run.RunID, run.Params.Policy, run.Params.Seed))

	// Impact
	sb.WriteString("## Impact\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Shock | %s %.2f |\n", run.Shock.Type, run.Shock.Magnitude))
	sb.WriteString(fmt.Sprintf("| Shock Measure | %.4f |\n", res.ShockMeasure))
	sb.WriteString(fmt.Sprintf("| Defaults | %d |\n", res.DefaultCount))
	sb.WriteString(fmt.Sprintf("| Default Proportion | %.4f |\n", res.DefaultCountProportion))
	sb.WriteString(fmt.Sprintf("| Vulnerability Measure | %.4f |\n", res.VulnerabilityMeasure))
	if res.Cleared {
		sb.WriteString(fmt.Sprintf("| Clearing Iterations | %d |\n", res.ClearingIterations))
		sb.WriteString(fmt.Sprintf("| Converged | %t |\n", res.Converged))
	} else {
		sb.WriteString("| Clearing | skipped (no defaults) |\n")
	}
	sb.WriteString("\n")

	// Steps
	sb.WriteString("## Steps\n\n")
	sb.WriteString("| Step | Phase | Defaults | Shock Measure |\n")
	sb.WriteString("|------|-------|----------|---------------|\n")
	for _, s := range r.Steps {
		sb.WriteString(fmt.Sprintf("| %d | %s | %d | %.4f |\n", s.StepIndex, s.Phase, s.DefaultCount, s.ShockMeasure))
	}
	sb.WriteString("\n")

	// Balance sheets
	sb.WriteString("## Balance Sheets\n\n")
	if len(r.Banks) > 0 {
		sb.WriteString("| Bank | Core | Outside Asset | Interbank Asset | Outside Liability | Interbank Liability | Balance | Defaulted |\n")
		sb.WriteString("|------|------|---------------|-----------------|-------------------|---------------------|---------|-----------|\n")
		for _, b := range r.Banks {
			sb.WriteString(fmt.Sprintf("| %d | %t | %s | %s | %s | %s | %s | %t |\n",
				b.Index, b.Core,
				amount(b.OutsideAsset), amount(b.InterbankAsset),
				amount(b.OutsideLiability), amount(b.InterbankLiability),
				amount(b.Balance), b.Defaulted))
		}
	} else {
		sb.WriteString("No balance sheets available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderSeriesMarkdown renders a series report as Markdown string.
func RenderSeriesMarkdown(r *SeriesReport) string {
	var sb strings.Builder
	s := r.Series
	cfg := s.Config

	sb.WriteString("# Shock Series Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Series: `%s` | Policy: %s | Shock: %s | Seed: %d\n\n",
		s.SeriesID, cfg.Params.Policy, cfg.ShockType, cfg.Params.Seed))

	// Threshold
	sb.WriteString("## Critical Threshold\n\n")
	if s.CriticalThreshold != nil {
		sb.WriteString(fmt.Sprintf("Threshold: **%.4f** (%s)\n\n", *s.CriticalThreshold, s.ThresholdMethod))
	} else {
		sb.WriteString("No critical threshold: default rate never rises.\n\n")
	}
	if s.NonConverged > 0 {
		sb.WriteString(fmt.Sprintf("**Warning:** %d point(s) hit the iteration cap of %d.\n\n", s.NonConverged, cfg.MaxIterations))
	}

	// Points
	sb.WriteString("## Points\n\n")
	sb.WriteString("| # | Magnitude | Shock Measure | Default Rate | Defaults | Iterations | Converged |\n")
	sb.WriteString("|---|-----------|---------------|--------------|----------|------------|-----------|\n")
	for i, p := range s.Points {
		sb.WriteString(fmt.Sprintf("| %d | %.4f | %.4f | %.4f | %d | %d | %t |\n",
			i, p.ShockMagnitude, p.ShockMeasure, p.DefaultRate, p.DefaultCount, p.Iterations, p.Converged))
	}
	sb.WriteString("\n")

	// Variations
	sb.WriteString("## Variations\n\n")
	if len(s.Variations) > 0 {
		sb.WriteString("| From | To | Delta |\n")
		sb.WriteString("|------|----|-------|\n")
		for _, v := range s.Variations {
			sb.WriteString(fmt.Sprintf("| %.4f | %.4f | %+.4f |\n", v.From, v.To, v.Delta))
		}
	} else {
		sb.WriteString("No variations available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderBatchMarkdown renders a batch report as Markdown string.
func RenderBatchMarkdown(r *BatchReport) string {
	var sb strings.Builder

	sb.WriteString("# Batch Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Job: `%s` | Scenarios: %d\n\n", r.JobID, len(r.Scenarios)))

	sb.WriteString("## Scenarios\n\n")
	if len(r.Scenarios) > 0 {
		sb.WriteString("| Scenario | Policy | Shock | Runs | Threshold Mean | Threshold Runs | Final Default Rate | Non-Converged | Dispersion | Verdict |\n")
		sb.WriteString("|----------|--------|-------|------|----------------|----------------|--------------------|---------------|------------|---------|\n")
		for _, s := range r.Scenarios {
			verdict := string(s.Verdict)
			if verdict == "" {
				verdict = "-"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %.4f | %d | %.4f | %.4f | %.4f | %s |\n",
				s.Scenario, s.Policy, s.ShockType, s.Runs,
				s.ThresholdMean, s.ThresholdRuns, s.FinalDefaultRate,
				s.NonConvergedShare, s.MaxDispersion, verdict))
		}
	} else {
		sb.WriteString("No scenarios run.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
