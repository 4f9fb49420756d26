package domain

// ShockType selects which banks an exogenous shock hits.
type ShockType string

// Shock types. The shock on a hit bank is Magnitude * outsideAsset.
const (
	ShockUniform   ShockType = "uniform"   // every bank
	ShockTargeted  ShockType = "targeted"  // a single bank
	ShockCore      ShockType = "core"      // core banks of a core-periphery network
	ShockPeriphery ShockType = "periphery" // periphery banks of a core-periphery network
)

// ShockConfig describes a shock relative to the banks' outside assets.
type ShockConfig struct {
	Type      ShockType `json:"type" yaml:"type"`
	Magnitude float64   `json:"magnitude" yaml:"magnitude"` // fraction of outside assets, [0,1]
	Target    int       `json:"target" yaml:"target"`       // bank index for targeted; -1 = random
}
