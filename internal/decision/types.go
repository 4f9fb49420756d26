package decision

// Verdict represents the final resilience classification.
type Verdict string

const (
	VerdictResilient Verdict = "RESILIENT"
	VerdictFragile   Verdict = "FRAGILE"
)

// Thresholds configures the resilience criteria.
type Thresholds struct {
	MinCriticalThreshold float64 `yaml:"min_critical_threshold" json:"min_critical_threshold"` // mean threshold must be at least this
	MaxFinalDefaultRate  float64 `yaml:"max_final_default_rate" json:"max_final_default_rate"` // at the largest magnitude
	MaxNonConvergedShare float64 `yaml:"max_non_converged_share" json:"max_non_converged_share"`
	MaxDispersion        float64 `yaml:"max_dispersion" json:"max_dispersion"` // per-point stddev across seeds

	SmallShockMagnitude float64 `yaml:"small_shock_magnitude" json:"small_shock_magnitude"` // collapse trigger window
	CollapseDefaultRate float64 `yaml:"collapse_default_rate" json:"collapse_default_rate"`
}

// DefaultThresholds returns the standard resilience thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinCriticalThreshold: 0.3,
		MaxFinalDefaultRate:  0.5,
		MaxNonConvergedShare: 0.05,
		MaxDispersion:        0.35,
		SmallShockMagnitude:  0.2,
		CollapseDefaultRate:  0.5,
	}
}

// DecisionInput contains numeric ensemble metrics for evaluation.
type DecisionInput struct {
	Scenario string
	Runs     int

	// Critical threshold over runs that have one; HasThreshold=false when
	// no run's default curve ever rose.
	HasThreshold  bool
	ThresholdMean float64

	FinalDefaultRate  float64
	NonConvergedShare float64
	MaxDispersion     float64

	// Mean default rate of the first (unshocked) point
	BaselineDefaultRate float64

	// Largest mean default rate at magnitudes <= SmallShockMagnitude
	SmallShockDefaultRate float64
}

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// DecisionResult contains the verdict with its checklist.
type DecisionResult struct {
	Scenario string
	Verdict  Verdict
	Criteria []CriterionResult // resilience criteria
	Triggers []CriterionResult // fragility triggers; Pass=false means fired
}
