package network

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"contagion-lab/internal/domain"
)

// Balance-sheet bases for core-periphery networks.
const (
	coreBase            = 5000.0
	peripheryBase       = 1000.0
	deficitCoverFactor  = 1.1
	outsideLiabilityPct = 0.5
)

// GenerateCorePeriphery builds a network whose first nCore banks form a
// densely linked core and the remaining nPeriphery banks a sparse periphery.
//
// Links, in draw order:
//   - core-core (i < j): probability pCore, random direction, Binomial(1500, 0.8)
//   - core lends to periphery: probability pCore/2, Binomial(1000, 0.8)
//   - periphery deposits at core: probability pPeriphery, Binomial(500, 0.7)
//   - periphery-periphery (i < j): probability pPeriphery/2, random direction, Binomial(200, 0.7)
//
// Outside assets start at the base (5000 core, 1000 periphery) and absorb
// 1.1x any negative net interbank position; outside liabilities are half
// the base.
func GenerateCorePeriphery(nCore, nPeriphery int, pCore, pPeriphery float64, rng *rand.Rand) (*Network, error) {
	if err := validateCount("core nodes", nCore); err != nil {
		return nil, err
	}
	if err := validateCount("periphery nodes", nPeriphery); err != nil {
		return nil, err
	}
	if nCore > MaxBanks-nPeriphery {
		return nil, fmt.Errorf("core + periphery nodes must be <= %d, got %d + %d: %w",
			MaxBanks, nCore, nPeriphery, domain.ErrInvalidParameter)
	}
	if err := validateProbability("core connection probability", pCore); err != nil {
		return nil, err
	}
	if err := validateProbability("periphery connection probability", pPeriphery); err != nil {
		return nil, err
	}

	n := nCore + nPeriphery
	obligations := mat.NewDense(n, n, nil)

	link := func(a, b int, amount float64) {
		if rng.Float64() < 0.5 {
			obligations.Set(a, b, amount)
		} else {
			obligations.Set(b, a, amount)
		}
	}

	for i := 0; i < nCore; i++ {
		for j := i + 1; j < nCore; j++ {
			if rng.Float64() < pCore {
				link(i, j, binomial(rng, 1500, 0.8))
			}
		}
	}

	for i := nCore; i < n; i++ {
		for j := 0; j < nCore; j++ {
			if rng.Float64() < pCore/2 {
				obligations.Set(j, i, binomial(rng, 1000, 0.8))
			}
			if rng.Float64() < pPeriphery {
				obligations.Set(i, j, binomial(rng, 500, 0.7))
			}
		}
	}

	for i := nCore; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() < pPeriphery/2 {
				link(i, j, binomial(rng, 200, 0.7))
			}
		}
	}

	owed := rowSums(obligations)
	owedTo := colSums(obligations)
	outsideAsset := make([]float64, n)
	outsideLiability := make([]float64, n)
	for i := range n {
		base := peripheryBase
		if i < nCore {
			base = coreBase
		}
		outsideAsset[i] = base
		if net := owedTo[i] - owed[i]; net < 0 {
			outsideAsset[i] = base + math.Abs(net)*deficitCoverFactor
		}
		outsideLiability[i] = outsideLiabilityPct * base
	}

	net := build(domain.PolicyCorePeriphery, obligations, outsideAsset, outsideLiability)
	net.CoreSize = nCore
	return net, nil
}
