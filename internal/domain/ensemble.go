package domain

// EnsemblePoint is the cross-seed distribution of the default rate at one
// shock magnitude.
type EnsemblePoint struct {
	ShockMagnitude float64 `json:"shock_magnitude"`

	DefaultRateMean   float64 `json:"default_rate_mean"`
	DefaultRateStddev float64 `json:"default_rate_stddev"` // sample (n-1)
	DefaultRateMedian float64 `json:"default_rate_median"`
	DefaultRateP10    float64 `json:"default_rate_p10"`
	DefaultRateP90    float64 `json:"default_rate_p90"`
	DefaultRateMin    float64 `json:"default_rate_min"`
	DefaultRateMax    float64 `json:"default_rate_max"`

	NonConverged int `json:"non_converged"` // runs whose clearing hit the cap
}

// EnsembleAggregate summarizes several seeded series of one scenario.
type EnsembleAggregate struct {
	Scenario  string    `json:"scenario"`
	Policy    Policy    `json:"policy"`
	ShockType ShockType `json:"shock_type"`
	Runs      int       `json:"runs"`

	Points []EnsemblePoint `json:"points"`

	// Critical threshold over the runs that have one
	ThresholdRuns   int     `json:"threshold_runs"`
	ThresholdMean   float64 `json:"threshold_mean"`
	ThresholdStddev float64 `json:"threshold_stddev"`
	ThresholdMedian float64 `json:"threshold_median"`

	FinalDefaultRateMean float64 `json:"final_default_rate_mean"` // at the largest magnitude
	NonConvergedShare    float64 `json:"non_converged_share"`     // over all points of all runs
	MaxDispersion        float64 `json:"max_dispersion"`          // largest per-point stddev
}
