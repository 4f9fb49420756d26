package shock

import (
	"fmt"
	"math"
	"math/rand/v2"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/network"
)

// Build returns the shock vector for cfg: Magnitude * outsideAsset[i] for
// every bank hit by cfg.Type, 0 elsewhere. rng is only used to pick the
// bank of a targeted shock with Target < 0.
func Build(net *network.Network, cfg domain.ShockConfig, rng *rand.Rand) ([]float64, error) {
	if math.IsNaN(cfg.Magnitude) || cfg.Magnitude < 0 || cfg.Magnitude > 1 {
		return nil, fmt.Errorf("shock magnitude must be in [0,1], got %v: %w", cfg.Magnitude, domain.ErrInvalidParameter)
	}

	hit, err := Targets(net, cfg.Type, cfg.Target, rng)
	if err != nil {
		return nil, err
	}

	shock := make([]float64, net.Size)
	for _, i := range hit {
		shock[i] = cfg.Magnitude * net.OutsideAsset[i]
	}
	return shock, nil
}

// Targets returns the indices of the banks hit by a shock of type t.
// A targeted shock with target < 0 picks one bank with rng.
func Targets(net *network.Network, t domain.ShockType, target int, rng *rand.Rand) ([]int, error) {
	switch t {
	case domain.ShockUniform:
		return span(0, net.Size), nil
	case domain.ShockTargeted:
		if target < 0 {
			if rng == nil {
				return nil, fmt.Errorf("random target requires a generator: %w", domain.ErrInvalidParameter)
			}
			target = rng.IntN(net.Size)
		}
		if target >= net.Size {
			return nil, fmt.Errorf("target bank %d out of range [0,%d): %w", target, net.Size, domain.ErrInvalidParameter)
		}
		return []int{target}, nil
	case domain.ShockCore, domain.ShockPeriphery:
		if net.Policy != domain.PolicyCorePeriphery {
			return nil, fmt.Errorf("%s shock requires a core-periphery network, got %s: %w", t, net.Policy, domain.ErrInvalidParameter)
		}
		if t == domain.ShockCore {
			return span(0, net.CoreSize), nil
		}
		return span(net.CoreSize, net.Size), nil
	default:
		return nil, fmt.Errorf("unknown shock type %q: %w", t, domain.ErrInvalidParameter)
	}
}

func span(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
