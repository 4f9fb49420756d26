package series

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/idhash"
	"contagion-lab/internal/logging"
	"contagion-lab/internal/network"
	"contagion-lab/internal/observability"
	"contagion-lab/internal/shock"
	"contagion-lab/internal/simulation"
	"contagion-lab/internal/storage"
)

// Progress reports one completed magnitude of a running series.
type Progress struct {
	SeriesID  string             `json:"series_id"`
	Index     int                `json:"index"`     // position in magnitude order
	Completed int                `json:"completed"` // points done so far
	Total     int                `json:"total"`
	Point     domain.SeriesPoint `json:"point"`
}

// ProgressFunc receives progress events. Calls are serialized.
type ProgressFunc func(Progress)

// Runner sweeps shock magnitudes over independent copies of a network.
type Runner struct {
	simulator   *simulation.Simulator
	seriesStore storage.SeriesStore
	pointStore  storage.SeriesPointStore
	workers     int
	log         logrus.FieldLogger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Simulator   *simulation.Simulator    // defaults to simulation.NewSimulator
	SeriesStore storage.SeriesStore      // optional
	PointStore  storage.SeriesPointStore // optional analytics sink
	Workers     int                      // concurrent magnitudes; defaults to GOMAXPROCS
	Logger      logrus.FieldLogger
}

// NewRunner creates a shock series runner.
func NewRunner(opts RunnerOptions) *Runner {
	sim := opts.Simulator
	if sim == nil {
		sim = simulation.NewSimulator(simulation.SimulatorOptions{Logger: opts.Logger})
	}
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Runner{
		simulator:   sim,
		seriesStore: opts.SeriesStore,
		pointStore:  opts.PointStore,
		workers:     workers,
		log:         logging.Component(opts.Logger, "series"),
	}
}

// RunShockSeries generates the network described by params and sweeps a
// shockType shock over steps magnitudes in [0, maxMagnitude].
func RunShockSeries(ctx context.Context, params domain.NetworkParams, shockType domain.ShockType, maxMagnitude float64, steps, maxIterations int) (*domain.SeriesResult, error) {
	return NewRunner(RunnerOptions{}).Run(ctx, domain.SeriesConfig{
		Params:        params,
		ShockType:     shockType,
		Target:        -1,
		MaxMagnitude:  maxMagnitude,
		Steps:         steps,
		MaxIterations: maxIterations,
	}, nil)
}

// MaxSteps caps the number of magnitudes in one sweep.
const MaxSteps = 1000

// Validate checks a sweep configuration.
func Validate(cfg domain.SeriesConfig) error {
	if cfg.Steps < 2 || cfg.Steps > MaxSteps {
		return fmt.Errorf("steps must be in [2,%d], got %d: %w", MaxSteps, cfg.Steps, domain.ErrInvalidParameter)
	}
	if math.IsNaN(cfg.MaxMagnitude) || cfg.MaxMagnitude < 0 || cfg.MaxMagnitude > 1 {
		return fmt.Errorf("max magnitude must be in [0,1], got %v: %w", cfg.MaxMagnitude, domain.ErrInvalidParameter)
	}
	if cfg.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be >= 1, got %d: %w", cfg.MaxIterations, domain.ErrInvalidParameter)
	}
	return nil
}

// Run generates the network of cfg.Params, runs the sweep and persists the
// result when stores are configured.
// Steps:
//  1. Validate cfg
//  2. Generate the base network from cfg.Params.Seed
//  3. Sweep magnitudes on clones of the base network
//  4. Persist series and analytics points
func (r *Runner) Run(ctx context.Context, cfg domain.SeriesConfig, progress ProgressFunc) (*domain.SeriesResult, error) {
	start := time.Now()
	policy := string(cfg.Params.Policy)

	// 1. Validate
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	// 2. Generate base network
	rng := network.NewRand(cfg.Params.Seed)
	base, err := network.Generate(cfg.Params, rng)
	if err != nil {
		return nil, err
	}
	observability.RecordNetworkGenerated(policy)

	// 3. Sweep
	result, err := r.RunOnNetwork(ctx, base, cfg, rng, progress)
	if err != nil {
		status := "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = "cancelled"
		}
		observability.RecordSeries(policy, status, 0, time.Since(start).Seconds())
		return nil, err
	}

	// 4. Persist
	if err := r.persist(ctx, result); err != nil {
		observability.RecordSeries(policy, "error", len(result.Points), time.Since(start).Seconds())
		return nil, err
	}

	observability.RecordSeries(policy, "ok", len(result.Points), time.Since(start).Seconds())
	r.log.WithFields(logrus.Fields{
		"series_id":     result.SeriesID,
		"policy":        policy,
		"points":        len(result.Points),
		"non_converged": result.NonConverged,
		"duration":      time.Since(start),
	}).Info("shock series complete")

	return result, nil
}

// RunOnNetwork sweeps cfg over clones of base, which is never mutated.
// rng resolves a random target once so every magnitude hits the same bank.
// Magnitudes run concurrently; ctx is checked before each one starts.
func (r *Runner) RunOnNetwork(ctx context.Context, base *network.Network, cfg domain.SeriesConfig, rng *rand.Rand, progress ProgressFunc) (*domain.SeriesResult, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	target := cfg.Target
	if cfg.ShockType == domain.ShockTargeted {
		hit, err := shock.Targets(base, cfg.ShockType, cfg.Target, rng)
		if err != nil {
			return nil, err
		}
		target = hit[0]
	}

	seriesID := idhash.ComputeSeriesID(cfg)
	mags := Magnitudes(cfg.MaxMagnitude, cfg.Steps)
	points := make([]domain.SeriesPoint, len(mags))

	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, m := range mags {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			net := base.Clone()
			shockVec, err := shock.Build(net, domain.ShockConfig{Type: cfg.ShockType, Magnitude: m, Target: target}, nil)
			if err != nil {
				return err
			}
			res, err := r.simulator.ApplyShockAndClear(gctx, net, shockVec, cfg.MaxIterations)
			if err != nil {
				return fmt.Errorf("magnitude %v: %w", m, err)
			}

			points[i] = domain.SeriesPoint{
				ShockMagnitude: m,
				ShockMeasure:   res.ShockMeasure,
				DefaultRate:    res.DefaultCountProportion,
				DefaultCount:   res.DefaultCount,
				Iterations:     res.ClearingIterations,
				Converged:      res.Converged,
			}

			if progress != nil {
				mu.Lock()
				completed++
				progress(Progress{
					SeriesID:  seriesID,
					Index:     i,
					Completed: completed,
					Total:     len(mags),
					Point:     points[i],
				})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &domain.SeriesResult{
		SeriesID:   seriesID,
		Config:     cfg,
		Points:     points,
		Variations: Variations(points),
		CreatedAt:  time.Now().UTC(),
	}
	for _, p := range points {
		if !p.Converged {
			result.NonConverged++
		}
	}

	threshold, method, ok := DetectCriticalThreshold(points)
	result.ThresholdMethod = method
	if ok {
		result.CriticalThreshold = &threshold
	}

	return result, nil
}

// RunEnsemble runs cfg once per seed cfg.Params.Seed + 0..seeds-1.
func (r *Runner) RunEnsemble(ctx context.Context, cfg domain.SeriesConfig, seeds int) ([]*domain.SeriesResult, error) {
	if seeds < 1 {
		return nil, fmt.Errorf("seeds must be >= 1, got %d: %w", seeds, domain.ErrInvalidParameter)
	}

	out := make([]*domain.SeriesResult, 0, seeds)
	for k := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := cfg
		c.Params.Seed = cfg.Params.Seed + uint64(k)
		res, err := r.Run(ctx, c, nil)
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", c.Params.Seed, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *Runner) persist(ctx context.Context, result *domain.SeriesResult) error {
	// series IDs are content hashes: duplicates hold the same data
	if r.seriesStore != nil {
		if err := r.seriesStore.Insert(ctx, result); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("persist series %s: %w", result.SeriesID, err)
		}
	}
	if r.pointStore != nil {
		if err := r.pointStore.InsertBulk(ctx, storage.PointRecords(result)); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("persist series points %s: %w", result.SeriesID, err)
		}
	}
	return nil
}
