package domain

// Policy selects the network topology generator.
type Policy string

// Topology policies.
const (
	PolicyRandom        Policy = "random"         // Erdős–Rényi-like random graph
	PolicyCorePeriphery Policy = "core_periphery" // dense core, sparse periphery
	PolicyTrivial       Policy = "trivial"        // homogeneous reference network
)

// NetworkParams is the generation configuration for one network.
// Only the fields of the selected Policy are read.
type NetworkParams struct {
	Policy Policy `json:"policy" yaml:"policy"`

	// random, trivial
	Nodes int `json:"nodes,omitempty" yaml:"nodes,omitempty"`

	// random
	ConnectionProbability float64 `json:"connection_probability,omitempty" yaml:"connection_probability,omitempty"`

	// core_periphery
	CoreNodes                      int     `json:"core_nodes,omitempty" yaml:"core_nodes,omitempty"`
	PeripheryNodes                 int     `json:"periphery_nodes,omitempty" yaml:"periphery_nodes,omitempty"`
	CoreConnectionProbability      float64 `json:"core_connection_probability,omitempty" yaml:"core_connection_probability,omitempty"`
	PeripheryConnectionProbability float64 `json:"periphery_connection_probability,omitempty" yaml:"periphery_connection_probability,omitempty"`

	// Seed feeds the generator RNG. Same params + seed => same network.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// Link is one non-zero bilateral obligation: From owes To Amount.
type Link struct {
	From   int     `json:"from"`
	To     int     `json:"to"`
	Amount float64 `json:"amount"`
}

// NodeSnapshot is the per-bank view handed to graph consumers.
type NodeSnapshot struct {
	Index              int     `json:"index"`
	Core               bool    `json:"core"`
	OutsideAsset       float64 `json:"outside_asset"`
	InterbankAsset     float64 `json:"interbank_asset"`
	OutsideLiability   float64 `json:"outside_liability"`
	InterbankLiability float64 `json:"interbank_liability"`
	Balance            float64 `json:"balance"`
	Defaulted          bool    `json:"defaulted"`
	Vulnerability      float64 `json:"vulnerability"`
}

// NetworkSnapshot is a serializable view of a generated network.
type NetworkSnapshot struct {
	Policy           Policy         `json:"policy"`
	Size             int            `json:"size"`
	SumOutsideAssets float64        `json:"sum_outside_assets"`
	Nodes            []NodeSnapshot `json:"nodes"`
	Links            []Link         `json:"links"`
}
