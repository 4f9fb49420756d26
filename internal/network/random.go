package network

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"contagion-lab/internal/domain"
)

// GenerateRandom builds an Erdős–Rényi-like network of n banks.
//
// Every bank draws an outside liability in [0, n²) with probability p, and
// every ordered pair (i, j), i != j, is linked with probability p with an
// obligation ~ Binomial(100n, 0.2). Outside assets cover any deficit plus a
// U(0, n²) cushion; banks without a deficit get U(0, n³).
// Trials are drawn in a fixed order so a seeded rng reproduces the network.
func GenerateRandom(n int, p float64, rng *rand.Rand) (*Network, error) {
	if err := validateCount("nodes", n); err != nil {
		return nil, err
	}
	if err := validateProbability("connection probability", p); err != nil {
		return nil, err
	}

	size := float64(n)
	obligations := mat.NewDense(n, n, nil)
	outsideLiability := make([]float64, n)
	for i := range n {
		if rng.Float64() < p {
			outsideLiability[i] = rng.Float64() * size * size
		}
		for j := range n {
			if i != j && rng.Float64() < p {
				obligations.Set(i, j, binomial(rng, 100*n, 0.2))
			}
		}
	}

	owed := rowSums(obligations)
	owedTo := colSums(obligations)
	outsideAsset := make([]float64, n)
	for i := range n {
		if owedTo[i] < owed[i]+outsideLiability[i] {
			outsideAsset[i] = math.Abs(owed[i]+outsideLiability[i]-owedTo[i]) + rng.Float64()*size*size
		} else {
			outsideAsset[i] = rng.Float64() * size * size * size
		}
	}

	return build(domain.PolicyRandom, obligations, outsideAsset, outsideLiability), nil
}

// MaxBanks caps the size of a generated network. Obligation and relative
// liability matrices are dense, so memory grows with the square of it.
const MaxBanks = 2000

func validateCount(name string, v int) error {
	if v < 1 || v > MaxBanks {
		return fmt.Errorf("%s must be in [1,%d], got %d: %w", name, MaxBanks, v, domain.ErrInvalidParameter)
	}
	return nil
}

func validateProbability(name string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%s must be in [0,1], got %v: %w", name, p, domain.ErrInvalidParameter)
	}
	return nil
}
