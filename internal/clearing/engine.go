// Package clearing computes Eisenberg–Noe clearing payment vectors.
package clearing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"contagion-lab/internal/domain"
)

// DefaultTolerance is the max-norm distance between successive iterates
// below which the fixed point is considered reached.
const DefaultTolerance = 0.001

// System is the input of one clearing computation.
type System struct {
	DuePayments  []float64  // p̄, total nominal obligations per bank
	Relative     mat.Matrix // R, relative liabilities
	OutsideAsset []float64  // outside assets before the shock
}

// Result is a clearing payment vector with its convergence diagnostics.
type Result struct {
	Payments   []float64
	Iterations int     // fixed-point iterations performed; 0 for a zero shock
	Converged  bool    // false when maxIterations was reached first
	Residual   float64 // max-norm distance of the last two iterates
}

// Engine solves p = min(p̄, max(0, Rᵀp + outsideAsset - shock)) by
// fixed-point iteration from p̄.
type Engine struct {
	tolerance float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTolerance overrides DefaultTolerance.
func WithTolerance(tol float64) Option {
	return func(e *Engine) {
		if tol > 0 {
			e.tolerance = tol
		}
	}
}

// NewEngine creates a clearing engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tolerance returns the convergence tolerance.
func (e *Engine) Tolerance() float64 {
	return e.tolerance
}

// Clear computes the clearing payment vector for sys under shock.
//
// An all-zero shock returns the due payments unchanged. Otherwise the
// iteration starts at the due payments and stops when successive iterates
// differ by less than the tolerance, or after maxIterations. Reaching the
// cap is not an error: the last iterate is returned with Converged=false.
func (e *Engine) Clear(sys System, shock []float64, maxIterations int) (*Result, error) {
	n := len(sys.DuePayments)
	if n == 0 || len(sys.OutsideAsset) != n || len(shock) != n {
		return nil, fmt.Errorf("clearing: vector lengths due=%d asset=%d shock=%d: %w",
			n, len(sys.OutsideAsset), len(shock), domain.ErrInvalidParameter)
	}
	if r, c := sys.Relative.Dims(); r != n || c != n {
		return nil, fmt.Errorf("clearing: relative liabilities %dx%d, want %dx%d: %w",
			r, c, n, n, domain.ErrInvalidParameter)
	}

	prev := make([]float64, n)
	copy(prev, sys.DuePayments)

	if isZero(shock) {
		return &Result{Payments: prev, Converged: true}, nil
	}

	res := &Result{Payments: prev}
	received := mat.NewVecDense(n, nil)
	for iter := 1; iter <= maxIterations; iter++ {
		received.MulVec(sys.Relative.T(), mat.NewVecDense(n, prev))

		next := make([]float64, n)
		for i := range n {
			v := received.AtVec(i) + sys.OutsideAsset[i] - shock[i]
			next[i] = math.Min(sys.DuePayments[i], math.Max(v, 0))
		}

		res.Iterations = iter
		res.Residual = floats.Distance(next, prev, math.Inf(1))
		res.Payments = next
		if res.Residual < e.tolerance {
			res.Converged = true
			return res, nil
		}
		prev = next
	}
	return res, nil
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
