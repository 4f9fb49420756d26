package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contagion-lab/internal/decision"
	"contagion-lab/internal/domain"
	"contagion-lab/internal/orchestrator"
	"contagion-lab/internal/reporting"
)

var (
	batchScenarios []string
	batchOutputDir string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run scenario ensembles and write resilience reports",
	Long: `Runs every configured scenario (or the ones named with --scenario)
over its seeded ensemble, aggregates the runs, evaluates resilience and
writes batch.md, batch.csv and one <scenario>_resilience.md per scenario
to <output-dir>/<job id>/.

Built-in scenarios: trivial, sparse_random, dense_random, core_periphery.`,
	RunE: runBatch,
}

func init() {
	fs := batchCmd.Flags()
	fs.StringSliceVar(&batchScenarios, "scenario", nil, "Scenario name (repeatable; default all configured)")
	fs.StringVar(&batchOutputDir, "output-dir", "", "Report directory (default from config)")
	fs.BoolVar(&persist, "persist", false, "Persist series to the configured storage backend")
}

func selectScenarios(names []string) ([]domain.Scenario, error) {
	if len(names) == 0 {
		return cfg.Scenarios, nil
	}
	out := make([]domain.Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := cfg.Scenario(name)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		out = append(out, sc)
	}
	return out, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	scenarios, err := selectScenarios(batchScenarios)
	if err != nil {
		return err
	}
	outputDir := batchOutputDir
	if outputDir == "" {
		outputDir = cfg.Schedule.OutputDir
	}

	ctx := cmd.Context()
	e, err := newEngine(ctx, persist)
	if err != nil {
		return err
	}
	defer e.cleanup()

	var generator *reporting.Generator
	if e.stores != nil {
		generator = reporting.NewGenerator(e.stores.Runs, e.stores.Series)
	}

	orch := orchestrator.New(orchestrator.Options{
		Runner:    e.runner,
		Evaluator: decision.NewEvaluator(cfg.Decision),
		Generator: generator,
		Scenarios: scenarios,
		OutputDir: outputDir,
		Logger:    logger,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %s\n", result.JobID)
	for _, s := range result.Scenarios {
		fmt.Fprintf(out, "  %-16s %-9s threshold=%.4f final_default=%.4f\n",
			s.Scenario, s.Decision.Verdict, s.Aggregate.ThresholdMean, s.Aggregate.FinalDefaultRateMean)
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(out, "  error: %s\n", msg)
	}
	for _, f := range result.Files {
		fmt.Fprintf(out, "  wrote %s\n", f)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d scenario(s) failed", len(result.Errors))
	}
	return nil
}
