package domain

import "time"

// SeriesPoint is one magnitude of a shock sweep.
type SeriesPoint struct {
	ShockMagnitude float64 `json:"shock_magnitude"`
	ShockMeasure   float64 `json:"shock_measure"`
	DefaultRate    float64 `json:"default_rate"` // defaultCountProportion
	DefaultCount   int     `json:"default_count"`
	Iterations     int     `json:"iterations"`
	Converged      bool    `json:"converged"`
}

// Variation is the change in default rate between two consecutive points.
type Variation struct {
	From  float64 `json:"from"` // shock magnitude
	To    float64 `json:"to"`
	Delta float64 `json:"delta"`
}

// Threshold detection methods
const (
	ThresholdInflection    = "inflection"     // first slope increase above 10% defaults
	ThresholdPeakVariation = "peak_variation" // midpoint of the steepest step
	ThresholdNone          = "none"
)

// SeriesConfig is the sweep configuration for one network.
type SeriesConfig struct {
	Params        NetworkParams `json:"params" yaml:"params"`
	ShockType     ShockType     `json:"shock_type" yaml:"shock_type"`
	Target        int           `json:"target" yaml:"target"` // targeted shocks only; -1 = random
	MaxMagnitude  float64       `json:"max_magnitude" yaml:"max_magnitude"`
	Steps         int           `json:"steps" yaml:"steps"`
	MaxIterations int           `json:"max_iterations" yaml:"max_iterations"`
}

// SeriesResult is a complete shock sweep.
type SeriesResult struct {
	SeriesID string       `json:"series_id"`
	Config   SeriesConfig `json:"config"`

	Points     []SeriesPoint `json:"points"` // magnitude order
	Variations []Variation   `json:"variations"`

	CriticalThreshold *float64 `json:"critical_threshold"` // nil when the curve is flat
	ThresholdMethod   string   `json:"threshold_method"`

	NonConverged int       `json:"non_converged"` // points whose clearing hit the iteration cap
	CreatedAt    time.Time `json:"created_at"`
}

// SeriesPointRecord is a series point flattened for analytics storage.
type SeriesPointRecord struct {
	SeriesID   string
	PointIndex int
	Policy     Policy
	ShockType  ShockType
	Seed       uint64
	SeriesPoint
}
