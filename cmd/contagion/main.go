// Package main provides the contagion CLI:
// - generate: build a network and print its snapshot
// - simulate: apply one shock and clear
// - sweep:    run a shock series (or a seeded ensemble) and report it
// - batch:    run configured scenarios and write resilience reports
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"contagion-lab/internal/clearing"
	"contagion-lab/internal/config"
	"contagion-lab/internal/logging"
	"contagion-lab/internal/series"
	"contagion-lab/internal/simulation"
	"contagion-lab/internal/storage/backend"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	persist    bool

	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "contagion",
	Short: "Financial contagion simulator (Eisenberg-Noe clearing)",
	Long: `contagion generates interbank networks, applies exogenous shocks to
the banks' outside assets and computes the Eisenberg-Noe clearing payment
vector to measure how defaults propagate.

Configuration is read from --config (YAML) with CONTAGION_* environment
overrides; flags override both.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if logFormat != "" {
			cfg.Logging.Format = logFormat
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json, text")

	rootCmd.AddCommand(generateCmd, simulateCmd, sweepCmd, batchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// engine wires a simulator and series runner from the loaded config. With
// persistence off, nothing is stored and cleanup is a no-op.
type engine struct {
	simulator *simulation.Simulator
	runner    *series.Runner
	stores    *backend.Stores
	cleanup   func()
}

func newEngine(ctx context.Context, withStores bool) (*engine, error) {
	e := &engine{cleanup: func() {}}

	var simOpts simulation.SimulatorOptions
	var runOpts series.RunnerOptions

	if withStores {
		stores, cleanup, err := backend.Open(ctx, cfg.Storage, logger)
		if err != nil {
			return nil, err
		}
		e.stores = stores
		e.cleanup = cleanup
		simOpts.RunStore = stores.Runs
		runOpts.SeriesStore = stores.Series
		runOpts.PointStore = stores.Points
	}

	simOpts.Engine = clearing.NewEngine(clearing.WithTolerance(cfg.Simulation.Tolerance))
	simOpts.Logger = logger
	e.simulator = simulation.NewSimulator(simOpts)

	runOpts.Simulator = e.simulator
	runOpts.Workers = cfg.Simulation.Workers
	runOpts.Logger = logger
	e.runner = series.NewRunner(runOpts)

	return e, nil
}
