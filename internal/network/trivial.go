package network

import (
	"gonum.org/v1/gonum/mat"

	"contagion-lab/internal/domain"
)

// Trivial network constants.
const (
	TrivialObligation       = 400.0
	TrivialOutsideAsset     = 110.0
	TrivialOutsideLiability = 100.0

	// TrivialNetWorth is the reference initial net worth of every bank.
	// It is a fixed constant, not derived from the balance formula; it only
	// equals 110 - 100 because of the chosen constants.
	TrivialNetWorth = 10.0
)

// GenerateTrivial builds the homogeneous reference network: every bank owes
// every other bank 400, holds 110 outside assets and 100 outside liabilities.
// Relative liabilities are fixed at 1/(n-1) off the diagonal.
func GenerateTrivial(n int) (*Network, error) {
	if err := validateCount("nodes", n); err != nil {
		return nil, err
	}

	obligations := mat.NewDense(n, n, nil)
	outsideAsset := make([]float64, n)
	outsideLiability := make([]float64, n)
	for i := range n {
		for j := range n {
			if i != j {
				obligations.Set(i, j, TrivialObligation)
			}
		}
		outsideAsset[i] = TrivialOutsideAsset
		outsideLiability[i] = TrivialOutsideLiability
	}

	net := build(domain.PolicyTrivial, obligations, outsideAsset, outsideLiability)

	if n > 1 {
		share := 1 / float64(n-1)
		for i := range n {
			for j := range n {
				if i != j {
					net.relative.Set(i, j, share)
				}
			}
		}
	}
	for i := range n {
		net.NetWorth[i] = TrivialNetWorth
	}
	return net, nil
}
