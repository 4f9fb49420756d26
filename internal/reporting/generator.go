package reporting

import (
	"context"
	"sort"
	"time"

	"contagion-lab/internal/decision"
	"contagion-lab/internal/domain"
	"contagion-lab/internal/storage"
)

// Phase names by step index.
var phaseNames = []string{"initial", "shocked", "cleared"}

// Generator produces reports from stored data.
type Generator struct {
	runStore    storage.RunStore
	seriesStore storage.SeriesStore
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. Either store may be nil
// when only the pure builders are used.
func NewGenerator(runStore storage.RunStore, seriesStore storage.SeriesStore) *Generator {
	return &Generator{
		runStore:    runStore,
		seriesStore: seriesStore,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Series loads a stored series and wraps it in a report.
func (g *Generator) Series(ctx context.Context, seriesID string) (*SeriesReport, error) {
	if g.seriesStore == nil {
		return nil, storage.ErrNotFound
	}
	s, err := g.seriesStore.GetByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	return g.SeriesFromResult(s), nil
}

// SeriesFromResult wraps an in-memory series in a report.
func (g *Generator) SeriesFromResult(s *domain.SeriesResult) *SeriesReport {
	return &SeriesReport{GeneratedAt: g.now(), Series: s}
}

// Simulation loads a stored run. The balance-sheet table is filled only
// when snap is non-nil, since runs do not persist the network.
func (g *Generator) Simulation(ctx context.Context, runID string, snap *domain.NetworkSnapshot) (*SimulationReport, error) {
	if g.runStore == nil {
		return nil, storage.ErrNotFound
	}
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return g.SimulationFromRun(run, snap), nil
}

// SimulationFromRun builds a simulation report from a run and the
// post-run network snapshot.
func (g *Generator) SimulationFromRun(run *domain.SimulationRun, snap *domain.NetworkSnapshot) *SimulationReport {
	report := &SimulationReport{
		GeneratedAt: g.now(),
		Run:         run,
	}

	if snap != nil {
		report.Banks = make([]BankRow, 0, len(snap.Nodes))
		for _, n := range snap.Nodes {
			report.Banks = append(report.Banks, BankRow{
				Index:              n.Index,
				Core:               n.Core,
				OutsideAsset:       n.OutsideAsset,
				InterbankAsset:     n.InterbankAsset,
				OutsideLiability:   n.OutsideLiability,
				InterbankLiability: n.InterbankLiability,
				Balance:            n.Balance,
				Defaulted:          n.Defaulted,
				Vulnerability:      n.Vulnerability,
			})
		}
		sort.Slice(report.Banks, func(i, j int) bool {
			return report.Banks[i].Index < report.Banks[j].Index
		})
	}

	for _, s := range run.Result.Steps {
		phase := "unknown"
		if s.StepIndex >= 0 && s.StepIndex < len(phaseNames) {
			phase = phaseNames[s.StepIndex]
		}
		report.Steps = append(report.Steps, StepRow{
			StepIndex:    s.StepIndex,
			Phase:        phase,
			DefaultCount: s.DefaultCount,
			ShockMeasure: s.ShockMeasure,
		})
	}

	return report
}

// Batch builds a batch report. aggs and verdicts are matched by scenario
// name; scenarios without a verdict are left blank.
func (g *Generator) Batch(jobID string, aggs []*domain.EnsembleAggregate, verdicts map[string]*decision.DecisionResult) *BatchReport {
	report := &BatchReport{
		GeneratedAt: g.now(),
		JobID:       jobID,
		Scenarios:   make([]ScenarioRow, 0, len(aggs)),
	}

	for _, agg := range aggs {
		row := ScenarioRow{
			Scenario:          agg.Scenario,
			Policy:            agg.Policy,
			ShockType:         agg.ShockType,
			Runs:              agg.Runs,
			ThresholdRuns:     agg.ThresholdRuns,
			ThresholdMean:     agg.ThresholdMean,
			ThresholdStddev:   agg.ThresholdStddev,
			FinalDefaultRate:  agg.FinalDefaultRateMean,
			NonConvergedShare: agg.NonConvergedShare,
			MaxDispersion:     agg.MaxDispersion,
		}
		if v, ok := verdicts[agg.Scenario]; ok && v != nil {
			row.Verdict = v.Verdict
		}
		report.Scenarios = append(report.Scenarios, row)
	}

	return report
}
