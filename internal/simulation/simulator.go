package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"contagion-lab/internal/clearing"
	"contagion-lab/internal/domain"
	"contagion-lab/internal/idhash"
	"contagion-lab/internal/logging"
	"contagion-lab/internal/network"
	"contagion-lab/internal/observability"
	"contagion-lab/internal/shock"
	"contagion-lab/internal/storage"
)

// Step indices of a simulation run.
const (
	StepInitial = 0
	StepShocked = 1
	StepCleared = 2
)

// Simulator runs shock scenarios against a network.
type Simulator struct {
	engine   *clearing.Engine
	runStore storage.RunStore
	log      logrus.FieldLogger
}

// SimulatorOptions contains configuration for creating a Simulator.
type SimulatorOptions struct {
	Engine   *clearing.Engine   // defaults to clearing.NewEngine()
	RunStore storage.RunStore   // optional; Run persists when set
	Logger   logrus.FieldLogger // optional
}

// NewSimulator creates a simulator.
func NewSimulator(opts SimulatorOptions) *Simulator {
	engine := opts.Engine
	if engine == nil {
		engine = clearing.NewEngine()
	}
	return &Simulator{
		engine:   engine,
		runStore: opts.RunStore,
		log:      logging.Component(opts.Logger, "simulation"),
	}
}

// Engine returns the clearing engine used by the simulator.
func (s *Simulator) Engine() *clearing.Engine {
	return s.engine
}

// ApplyShockAndClear runs one shock scenario on net, which it mutates.
// Steps:
//  1. Validate maxIterations and the shock vector (no mutation on failure)
//  2. Record step 0: initial default vector
//  3. Subtract the shock from outside assets, refresh net worth and
//     defaults, record step 1
//  4. If any bank defaulted: clear against pre-shock outside assets,
//     revalue interbank assets to received payments, record step 2
//  5. Compute impact metrics
func (s *Simulator) ApplyShockAndClear(ctx context.Context, net *network.Network, shockVec []float64, maxIterations int) (*domain.SimulationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. Validate
	if maxIterations < 1 {
		return nil, fmt.Errorf("max iterations must be >= 1, got %d: %w", maxIterations, domain.ErrInvalidParameter)
	}
	if err := ValidateShock(net, shockVec); err != nil {
		observability.RecordSimulation("rejected", 0)
		return nil, err
	}

	result := &domain.SimulationResult{}

	// 2. Initial
	result.Steps = append(result.Steps, snapshot(net, StepInitial, 0))

	// 3. Shock applied
	preShock := make([]float64, net.Size)
	copy(preShock, net.OutsideAsset)
	applyShock(net, shockVec)

	shockMeasure := 0.0
	if net.SumOutsideAssets > 0 {
		shockMeasure = floats.Sum(shockVec) / net.SumOutsideAssets
	}
	result.Steps = append(result.Steps, snapshot(net, StepShocked, shockMeasure))

	// 4. Clearing
	if net.DefaultCount() > 0 {
		cleared, err := s.engine.Clear(clearing.System{
			DuePayments:  net.DuePayments,
			Relative:     net.RelativeLiabilities(),
			OutsideAsset: preShock,
		}, shockVec, maxIterations)
		if err != nil {
			return nil, err
		}

		revalue(net, cleared.Payments)
		result.Steps = append(result.Steps, snapshot(net, StepCleared, shockMeasure))

		result.FinalPayments = cleared.Payments
		result.Cleared = true
		result.ClearingIterations = cleared.Iterations
		result.Converged = cleared.Converged
		result.Residual = cleared.Residual

		observability.RecordClearing(cleared.Iterations, cleared.Converged)
		if !cleared.Converged {
			s.log.WithFields(logrus.Fields{
				"iterations": cleared.Iterations,
				"residual":   cleared.Residual,
			}).Warn("clearing did not converge, using last iterate")
		}
	} else {
		result.Converged = true
	}

	// 5. Impact
	result.ShockMeasure = shockMeasure
	result.DefaultCount = net.DefaultCount()
	result.DefaultCountProportion = float64(result.DefaultCount) / float64(net.Size)
	result.VulnerabilityMeasure = floats.Max(net.Vulnerability)

	observability.RecordSimulation("ok", result.DefaultCountProportion)
	return result, nil
}

// Run generates a network from params, builds the shock from cfg and runs
// it. The same generator, seeded from params.Seed, drives generation and
// any random shock target. The run is persisted when a RunStore is set.
func (s *Simulator) Run(ctx context.Context, params domain.NetworkParams, cfg domain.ShockConfig, maxIterations int) (*domain.SimulationRun, *network.Network, error) {
	rng := network.NewRand(params.Seed)
	net, err := network.Generate(params, rng)
	if err != nil {
		return nil, nil, err
	}
	observability.RecordNetworkGenerated(string(params.Policy))

	shockVec, err := shock.Build(net, cfg, rng)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.ApplyShockAndClear(ctx, net, shockVec, maxIterations)
	if err != nil {
		return nil, nil, err
	}

	run := &domain.SimulationRun{
		RunID:         idhash.ComputeRunID(params, cfg, maxIterations),
		Params:        params,
		Shock:         cfg,
		MaxIterations: maxIterations,
		Result:        *result,
		CreatedAt:     time.Now().UTC(),
	}

	s.log.WithFields(logrus.Fields{
		"run_id":        run.RunID,
		"policy":        params.Policy,
		"magnitude":     cfg.Magnitude,
		"default_count": result.DefaultCount,
	}).Debug("simulation complete")

	if s.runStore != nil {
		// IDs are content hashes: an existing run holds the same result
		if err := s.runStore.Insert(ctx, run); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, nil, fmt.Errorf("persist run %s: %w", run.RunID, err)
		}
	}

	return run, net, nil
}

// ValidateShock checks a shock vector against the network's current
// outside assets without mutating anything.
func ValidateShock(net *network.Network, shockVec []float64) error {
	if len(shockVec) != net.Size {
		return fmt.Errorf("shock vector has %d entries, network has %d banks: %w",
			len(shockVec), net.Size, domain.ErrInvalidParameter)
	}
	for i, v := range shockVec {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("shock[%d] = %v: %w", i, v, domain.ErrInvalidParameter)
		}
		if v > net.OutsideAsset[i] {
			return fmt.Errorf("shock[%d] = %v > outside asset %v: %w",
				i, v, net.OutsideAsset[i], domain.ErrShockExceedsAssets)
		}
	}
	return nil
}

// ApplyShock validates the shock and subtracts it from the outside assets.
// The network is untouched when validation fails.
func ApplyShock(net *network.Network, shockVec []float64) error {
	if err := ValidateShock(net, shockVec); err != nil {
		return err
	}
	applyShock(net, shockVec)
	return nil
}

func applyShock(net *network.Network, shockVec []float64) {
	for i, v := range shockVec {
		net.OutsideAsset[i] -= v
		net.Banks[i].OutsideAsset = net.OutsideAsset[i]
	}
	net.RefreshNetWorth()
	net.RefreshDefaults()
}

// revalue sets every bank's interbank asset to what it actually receives
// under payments p, Σ_j min(L[j][i], R[j][i]·p[j]), then refreshes net
// worth and defaults.
func revalue(net *network.Network, p []float64) {
	for i := range net.Size {
		received := 0.0
		for j := range net.Size {
			if l := net.Obligation(j, i); l > 0 {
				received += math.Min(l, net.RelativeLiability(j, i)*p[j])
			}
		}
		net.Banks[i].InterbankAsset = received
	}
	net.RefreshNetWorth()
	net.RefreshDefaults()
}

func snapshot(net *network.Network, step int, shockMeasure float64) domain.SimulationStep {
	defaults := make([]bool, net.Size)
	copy(defaults, net.DefaultVector)
	count := 0
	for _, d := range defaults {
		if d {
			count++
		}
	}
	return domain.SimulationStep{
		StepIndex:     step,
		DefaultVector: defaults,
		DefaultCount:  count,
		ShockMeasure:  shockMeasure,
	}
}
