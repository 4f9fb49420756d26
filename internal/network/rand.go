package network

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NewRand returns the seeded generator used for network generation and
// random shock targets.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// binomial draws a Binomial(trials, p) count from rng.
func binomial(rng *rand.Rand, trials int, p float64) float64 {
	return distuv.Binomial{N: float64(trials), P: p, Src: rng}.Rand()
}
