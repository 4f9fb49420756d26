package reporting

import (
	"time"

	"contagion-lab/internal/decision"
	"contagion-lab/internal/domain"
)

// SimulationReport describes one shock-and-clear run.
type SimulationReport struct {
	GeneratedAt time.Time
	Run         *domain.SimulationRun

	// Per-bank balance sheet after the run (sorted by index)
	Banks []BankRow

	// Defaults per phase
	Steps []StepRow
}

// BankRow represents one row in the balance-sheet table.
type BankRow struct {
	Index              int
	Core               bool
	OutsideAsset       float64
	InterbankAsset     float64
	OutsideLiability   float64
	InterbankLiability float64
	Balance            float64
	Defaulted          bool
	Vulnerability      float64
}

// StepRow represents one simulation phase.
type StepRow struct {
	StepIndex    int
	Phase        string
	DefaultCount int
	ShockMeasure float64
}

// SeriesReport describes one shock sweep.
type SeriesReport struct {
	GeneratedAt time.Time
	Series      *domain.SeriesResult
}

// BatchReport summarizes a scenario batch.
type BatchReport struct {
	GeneratedAt time.Time
	JobID       string

	// Scenario rows in configured order
	Scenarios []ScenarioRow
}

// ScenarioRow represents one scenario's ensemble and verdict.
type ScenarioRow struct {
	Scenario          string
	Policy            domain.Policy
	ShockType         domain.ShockType
	Runs              int
	ThresholdRuns     int
	ThresholdMean     float64
	ThresholdStddev   float64
	FinalDefaultRate  float64
	NonConvergedShare float64
	MaxDispersion     float64
	Verdict           decision.Verdict
}
