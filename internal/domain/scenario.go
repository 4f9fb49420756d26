package domain

// Scenario is a named sweep run over several seeds.
type Scenario struct {
	Name   string       `json:"name" yaml:"name"`
	Series SeriesConfig `json:"series" yaml:"series"`
	Seeds  int          `json:"seeds" yaml:"seeds"` // ensemble size; seeds are Series.Params.Seed + 0..Seeds-1
}

// Scenario name constants
const (
	ScenarioTrivial       = "trivial"
	ScenarioSparseRandom  = "sparse_random"
	ScenarioDenseRandom   = "dense_random"
	ScenarioCorePeriphery = "core_periphery"
)

// Predefined scenarios, matching the dashboard defaults of the reference model.
var (
	ScenarioTrivialReference = Scenario{
		Name: ScenarioTrivial,
		Series: SeriesConfig{
			Params:        NetworkParams{Policy: PolicyTrivial, Nodes: 10},
			ShockType:     ShockUniform,
			Target:        -1,
			MaxMagnitude:  1,
			Steps:         11,
			MaxIterations: 100,
		},
		Seeds: 1,
	}

	ScenarioSparseRandomNetwork = Scenario{
		Name: ScenarioSparseRandom,
		Series: SeriesConfig{
			Params:        NetworkParams{Policy: PolicyRandom, Nodes: 10, ConnectionProbability: 0.2, Seed: 1},
			ShockType:     ShockUniform,
			Target:        -1,
			MaxMagnitude:  1,
			Steps:         11,
			MaxIterations: 100,
		},
		Seeds: 20,
	}

	ScenarioDenseRandomNetwork = Scenario{
		Name: ScenarioDenseRandom,
		Series: SeriesConfig{
			Params:        NetworkParams{Policy: PolicyRandom, Nodes: 10, ConnectionProbability: 0.6, Seed: 1},
			ShockType:     ShockUniform,
			Target:        -1,
			MaxMagnitude:  1,
			Steps:         11,
			MaxIterations: 100,
		},
		Seeds: 20,
	}

	ScenarioCorePeripheryNetwork = Scenario{
		Name: ScenarioCorePeriphery,
		Series: SeriesConfig{
			Params: NetworkParams{
				Policy:                         PolicyCorePeriphery,
				CoreNodes:                      5,
				PeripheryNodes:                 15,
				CoreConnectionProbability:      0.8,
				PeripheryConnectionProbability: 0.2,
				Seed:                           1,
			},
			ShockType:     ShockCore,
			Target:        -1,
			MaxMagnitude:  1,
			Steps:         11,
			MaxIterations: 100,
		},
		Seeds: 20,
	}
)

// DefaultScenarios returns the predefined scenarios in report order.
func DefaultScenarios() []Scenario {
	return []Scenario{
		ScenarioTrivialReference,
		ScenarioSparseRandomNetwork,
		ScenarioDenseRandomNetwork,
		ScenarioCorePeripheryNetwork,
	}
}
