package domain

import "time"

// SimulationStep is an immutable snapshot of the default state after one phase.
type SimulationStep struct {
	StepIndex     int     `json:"step_index"` // 0 initial, 1 shocked, 2 cleared
	DefaultVector []bool  `json:"default_vector"`
	DefaultCount  int     `json:"default_count"`
	ShockMeasure  float64 `json:"shock_measure"`
}

// SimulationResult is the outcome of one shock-and-clear run.
type SimulationResult struct {
	// FinalPayments is the clearing payment vector; nil when no bank
	// defaulted after the shock and clearing was skipped.
	FinalPayments []float64 `json:"final_payments"`

	ShockMeasure           float64 `json:"shock_measure"`
	DefaultCount           int     `json:"default_count"`
	DefaultCountProportion float64 `json:"default_count_proportion"`
	VulnerabilityMeasure   float64 `json:"vulnerability_measure"`

	Steps []SimulationStep `json:"steps"`

	// Clearing diagnostics
	Cleared            bool    `json:"cleared"`
	ClearingIterations int     `json:"clearing_iterations"`
	Converged          bool    `json:"converged"`
	Residual           float64 `json:"residual"`
}

// SimulationRun is a persisted simulation with the inputs that produced it.
type SimulationRun struct {
	RunID         string           `json:"run_id"` // deterministic hash of inputs
	Params        NetworkParams    `json:"params"`
	Shock         ShockConfig      `json:"shock"`
	MaxIterations int              `json:"max_iterations"`
	Result        SimulationResult `json:"result"`
	CreatedAt     time.Time        `json:"created_at"`
}
