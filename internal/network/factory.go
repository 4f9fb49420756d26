package network

import (
	"fmt"
	"math/rand/v2"

	"contagion-lab/internal/domain"
)

// Generate builds a network for params.Policy.
// rng drives every random draw; trivial networks ignore it.
func Generate(params domain.NetworkParams, rng *rand.Rand) (*Network, error) {
	switch params.Policy {
	case domain.PolicyRandom:
		return GenerateRandom(params.Nodes, params.ConnectionProbability, rng)
	case domain.PolicyCorePeriphery:
		return GenerateCorePeriphery(
			params.CoreNodes,
			params.PeripheryNodes,
			params.CoreConnectionProbability,
			params.PeripheryConnectionProbability,
			rng,
		)
	case domain.PolicyTrivial:
		return GenerateTrivial(params.Nodes)
	default:
		return nil, fmt.Errorf("unknown policy %q: %w", params.Policy, domain.ErrInvalidParameter)
	}
}

// GenerateSeeded builds a network with a generator seeded from params.Seed.
func GenerateSeeded(params domain.NetworkParams) (*Network, error) {
	return Generate(params, NewRand(params.Seed))
}
