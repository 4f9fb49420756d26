// Package orchestrator runs scenario batches end to end.
// It coordinates: shock series ensembles → aggregation → resilience verdict → reports
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"contagion-lab/internal/decision"
	"contagion-lab/internal/domain"
	"contagion-lab/internal/logging"
	"contagion-lab/internal/metrics"
	"contagion-lab/internal/observability"
	"contagion-lab/internal/reporting"
	"contagion-lab/internal/series"
)

// ErrNoScenarios is returned when a batch has nothing to run.
var ErrNoScenarios = errors.New("no scenarios configured")

// Report file names inside a job directory.
const (
	BatchMarkdownFile = "batch.md"
	BatchCSVFile      = "batch.csv"
)

// Orchestrator coordinates batch execution.
// Flow: ensemble per scenario → aggregate → evaluate → write reports
type Orchestrator struct {
	runner    *series.Runner
	evaluator *decision.Evaluator
	generator *reporting.Generator
	scenarios []domain.Scenario
	outputDir string
	log       logrus.FieldLogger
	newJobID  func() string
}

// Options for creating Orchestrator.
type Options struct {
	Runner    *series.Runner       // defaults to a store-less runner
	Evaluator *decision.Evaluator  // defaults to decision.DefaultThresholds
	Generator *reporting.Generator // defaults to a store-less generator
	Scenarios []domain.Scenario
	OutputDir string // empty disables report files
	Logger    logrus.FieldLogger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		runner:    opts.Runner,
		evaluator: opts.Evaluator,
		generator: opts.Generator,
		scenarios: opts.Scenarios,
		outputDir: opts.OutputDir,
		log:       logging.Component(opts.Logger, "orchestrator"),
		newJobID:  func() string { return uuid.NewString() },
	}
	if o.runner == nil {
		o.runner = series.NewRunner(series.RunnerOptions{Logger: opts.Logger})
	}
	if o.evaluator == nil {
		o.evaluator = decision.NewEvaluator(decision.DefaultThresholds())
	}
	if o.generator == nil {
		o.generator = reporting.NewGenerator(nil, nil)
	}
	return o
}

// ScenarioOutcome is the result of one scenario ensemble.
type ScenarioOutcome struct {
	Scenario  string
	SeriesIDs []string
	Aggregate *domain.EnsembleAggregate
	Decision  *decision.DecisionResult
}

// RunResult contains results from a batch execution.
type RunResult struct {
	JobID     string
	Scenarios []ScenarioOutcome
	Report    *reporting.BatchReport
	Files     []string // written report paths
	Errors    []string // per-scenario failures; the batch continues past them
}

// Run executes every configured scenario.
// Phases:
//  1. Run the seeded ensemble of each scenario
//  2. Aggregate each ensemble
//  3. Evaluate resilience
//  4. Write reports
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result, err := o.run(ctx)

	status := "ok"
	reports := 0
	if err != nil {
		status = "error"
	} else {
		reports = len(result.Files)
		if len(result.Errors) > 0 {
			status = "partial"
		}
	}
	observability.RecordBatchRun(status, time.Since(start).Seconds(), reports)

	return result, err
}

func (o *Orchestrator) run(ctx context.Context) (*RunResult, error) {
	if len(o.scenarios) == 0 {
		return nil, ErrNoScenarios
	}

	result := &RunResult{JobID: o.newJobID()}
	log := o.log.WithField("job_id", result.JobID)

	aggs := make([]*domain.EnsembleAggregate, 0, len(o.scenarios))
	verdicts := make(map[string]*decision.DecisionResult, len(o.scenarios))

	for _, sc := range o.scenarios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slog := log.WithField("scenario", sc.Name)

		// Phase 1: Ensemble
		slog.WithField("seeds", sc.Seeds).Info("Phase 1: running ensemble")
		runs, err := o.runner.RunEnsemble(ctx, sc.Series, sc.Seeds)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			result.Errors = append(result.Errors, fmt.Sprintf("ensemble %s: %v", sc.Name, err))
			slog.WithError(err).Error("ensemble failed")
			continue
		}

		// Phase 2: Aggregate
		agg, err := metrics.Aggregate(sc.Name, runs)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("aggregate %s: %v", sc.Name, err))
			continue
		}

		// Phase 3: Evaluate
		input, err := decision.Build(agg, o.evaluator.Thresholds().SmallShockMagnitude)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("decision %s: %v", sc.Name, err))
			continue
		}
		verdict, err := o.evaluator.Evaluate(*input)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("decision %s: %v", sc.Name, err))
			continue
		}

		outcome := ScenarioOutcome{
			Scenario:  sc.Name,
			Aggregate: agg,
			Decision:  verdict,
		}
		for _, r := range runs {
			outcome.SeriesIDs = append(outcome.SeriesIDs, r.SeriesID)
		}
		result.Scenarios = append(result.Scenarios, outcome)
		aggs = append(aggs, agg)
		verdicts[sc.Name] = verdict

		slog.WithFields(logrus.Fields{
			"verdict":        verdict.Verdict,
			"threshold_mean": agg.ThresholdMean,
			"final_default":  agg.FinalDefaultRateMean,
		}).Info("scenario evaluated")
	}

	result.Report = o.generator.Batch(result.JobID, aggs, verdicts)

	// Phase 4: Reports
	if o.outputDir != "" {
		files, err := o.writeReports(result)
		if err != nil {
			return nil, fmt.Errorf("phase 4 (reports) failed: %w", err)
		}
		result.Files = files
		log.WithField("files", len(files)).Info("Phase 4: reports written")
	}

	log.WithFields(logrus.Fields{
		"scenarios": len(result.Scenarios),
		"errors":    len(result.Errors),
	}).Info("batch completed")

	return result, nil
}

// writeReports writes the batch and per-scenario reports under
// outputDir/<job id>/.
func (o *Orchestrator) writeReports(result *RunResult) ([]string, error) {
	dir := filepath.Join(o.outputDir, result.JobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	files := map[string]string{
		BatchMarkdownFile: reporting.RenderBatchMarkdown(result.Report),
		BatchCSVFile:      reporting.RenderBatchCSV(result.Report),
	}
	order := []string{BatchMarkdownFile, BatchCSVFile}
	for _, s := range result.Scenarios {
		name := s.Scenario + "_resilience.md"
		files[name] = decision.RenderMarkdown(s.Decision)
		order = append(order, name)
	}

	written := make([]string, 0, len(order))
	for _, name := range order {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(files[name]), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, path)
	}
	return written, nil
}
