package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"contagion-lab/internal/decision"
	"contagion-lab/internal/domain"
	"contagion-lab/internal/metrics"
	"contagion-lab/internal/reporting"
)

var (
	sweepNet          networkFlags
	sweepShock        string
	sweepTarget       int
	sweepMaxMagnitude float64
	sweepSteps        int
	sweepMaxIter      int
	sweepSeeds        int
	sweepFormat       string
	sweepOut          string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a shock series over increasing magnitudes",
	Long: `Sweeps --steps evenly spaced shock magnitudes in [0, --max-magnitude]
over independent copies of one generated network and reports the default
rate curve, the variations between consecutive points and the critical
shock threshold.

With --seeds > 1 the sweep is repeated for seeds seed..seed+n-1 and the
ensemble is aggregated and evaluated for resilience.

Example:
  contagion sweep --policy random --nodes 30 --p 0.1 --steps 21 --format markdown
  contagion sweep --policy core_periphery --shock core --seeds 20`,
	RunE: runSweep,
}

func init() {
	sweepNet.register(sweepCmd)
	fs := sweepCmd.Flags()
	fs.StringVar(&sweepShock, "shock", string(domain.ShockUniform), "Shock type: uniform, targeted, core, periphery")
	fs.IntVar(&sweepTarget, "target", -1, "Bank index for targeted shocks (-1 = random, fixed for the whole sweep)")
	fs.Float64Var(&sweepMaxMagnitude, "max-magnitude", 1, "Largest shock magnitude, [0,1]")
	fs.IntVar(&sweepSteps, "steps", 11, "Number of magnitudes (>= 2)")
	fs.IntVar(&sweepMaxIter, "max-iterations", 0, "Clearing iteration cap (default from config)")
	fs.IntVar(&sweepSeeds, "seeds", 1, "Ensemble size")
	fs.StringVar(&sweepFormat, "format", formatJSON, "Output format: json, markdown, csv (csv for single series only)")
	fs.StringVarP(&sweepOut, "out", "o", "", "Output file (default stdout)")
	fs.BoolVar(&persist, "persist", false, "Persist series to the configured storage backend")
}

func runSweep(cmd *cobra.Command, args []string) error {
	if err := checkFormat(sweepFormat, formatJSON, formatMarkdown, formatCSV); err != nil {
		return err
	}
	if sweepSeeds > 1 && sweepFormat == formatCSV {
		return fmt.Errorf("csv output is not available for ensembles")
	}

	maxIter := sweepMaxIter
	if maxIter == 0 {
		maxIter = cfg.Simulation.MaxIterations
	}
	seriesCfg := domain.SeriesConfig{
		Params:        sweepNet.params(),
		ShockType:     domain.ShockType(sweepShock),
		Target:        sweepTarget,
		MaxMagnitude:  sweepMaxMagnitude,
		Steps:         sweepSteps,
		MaxIterations: maxIter,
	}

	ctx := cmd.Context()
	e, err := newEngine(ctx, persist)
	if err != nil {
		return err
	}
	defer e.cleanup()

	w, closeOut, err := output(sweepOut)
	if err != nil {
		return err
	}

	if sweepSeeds <= 1 {
		result, err := e.runner.Run(ctx, seriesCfg, nil)
		if err != nil {
			closeOut()
			return fmt.Errorf("sweep: %w", err)
		}

		report := reporting.NewGenerator(nil, nil).SeriesFromResult(result)
		switch sweepFormat {
		case formatMarkdown:
			_, err = fmt.Fprint(w, reporting.RenderSeriesMarkdown(report))
		case formatCSV:
			_, err = fmt.Fprint(w, reporting.RenderPointsCSV(report))
		default:
			err = writeJSON(w, result)
		}
		if err != nil {
			closeOut()
			return err
		}
		return closeOut()
	}

	runs, err := e.runner.RunEnsemble(ctx, seriesCfg, sweepSeeds)
	if err != nil {
		closeOut()
		return fmt.Errorf("ensemble: %w", err)
	}
	agg, err := metrics.Aggregate("cli", runs)
	if err != nil {
		closeOut()
		return err
	}
	evaluator := decision.NewEvaluator(cfg.Decision)
	input, err := decision.Build(agg, cfg.Decision.SmallShockMagnitude)
	if err != nil {
		closeOut()
		return err
	}
	verdict, err := evaluator.Evaluate(*input)
	if err != nil {
		closeOut()
		return err
	}

	logger.WithFields(logrus.Fields{
		"runs":           agg.Runs,
		"threshold_mean": agg.ThresholdMean,
		"verdict":        verdict.Verdict,
	}).Info("ensemble complete")

	switch sweepFormat {
	case formatMarkdown:
		_, err = fmt.Fprint(w, decision.RenderMarkdown(verdict))
	default:
		err = writeJSON(w, struct {
			Aggregate *domain.EnsembleAggregate `json:"aggregate"`
			Decision  *decision.DecisionResult  `json:"decision"`
		}{agg, verdict})
	}
	if err != nil {
		closeOut()
		return err
	}
	return closeOut()
}
