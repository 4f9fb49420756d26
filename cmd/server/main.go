// Package main provides the contagion API server:
// - HTTP API: networks, simulations, shock series, reports, verification
// - Series progress over websocket
// - Scheduled scenario batches (cron) writing resilience reports
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"contagion-lab/internal/api"
	"contagion-lab/internal/clearing"
	"contagion-lab/internal/config"
	"contagion-lab/internal/decision"
	"contagion-lab/internal/logging"
	"contagion-lab/internal/orchestrator"
	"contagion-lab/internal/reporting"
	"contagion-lab/internal/series"
	"contagion-lab/internal/simulation"
	"contagion-lab/internal/storage/backend"
)

var (
	configPath string
	addr       string
	schedule   string
	runOnStart bool
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the contagion API and scheduled scenario batches",
	Long: `Serves the HTTP API (see /api/v1) together with /health, /status and
/metrics. When a cron schedule is configured the scenario batch runs on it
and writes its reports to the configured output directory.

Shuts down gracefully on SIGINT/SIGTERM; a second signal forces exit.`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	fs := rootCmd.Flags()
	fs.StringVar(&configPath, "config", "", "YAML config file")
	fs.StringVar(&addr, "addr", "", "HTTP listen address (default from config)")
	fs.StringVar(&schedule, "schedule", "", "Cron schedule for scenario batches, e.g. \"@hourly\" (default from config)")
	fs.BoolVar(&runOnStart, "run-on-start", false, "Run one batch immediately on start")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Server holds all components of the service.
type Server struct {
	cfg  *config.Config
	log  logrus.FieldLogger
	api  *api.Server
	orch *orchestrator.Orchestrator

	// State
	mu        sync.Mutex
	running   bool
	runs      int
	lastRun   time.Time
	lastJobID string
	lastErr   string
}

// newServer wires the engine, API and orchestrator over stores.
func newServer(cfg *config.Config, stores *backend.Stores, logger *logrus.Logger) *Server {
	simulator := simulation.NewSimulator(simulation.SimulatorOptions{
		Engine:   clearing.NewEngine(clearing.WithTolerance(cfg.Simulation.Tolerance)),
		RunStore: stores.Runs,
		Logger:   logger,
	})
	runner := series.NewRunner(series.RunnerOptions{
		Simulator:   simulator,
		SeriesStore: stores.Series,
		PointStore:  stores.Points,
		Workers:     cfg.Simulation.Workers,
		Logger:      logger,
	})

	s := &Server{
		cfg: cfg,
		log: logging.Component(logger, "server"),
	}
	s.orch = orchestrator.New(orchestrator.Options{
		Runner:    runner,
		Evaluator: decision.NewEvaluator(cfg.Decision),
		Generator: reporting.NewGenerator(stores.Runs, stores.Series),
		Scenarios: cfg.Scenarios,
		OutputDir: cfg.Schedule.OutputDir,
		Logger:    logger,
	})
	s.api = api.New(api.Options{
		Simulator:      simulator,
		Runner:         runner,
		RunStore:       stores.Runs,
		SeriesStore:    stores.Series,
		BatchStatus:    s.batchStatus,
		MaxIterations:  cfg.Simulation.MaxIterations,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})
	return s
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if schedule != "" {
		cfg.Schedule.Cron = schedule
	}
	if runOnStart {
		cfg.Schedule.RunOnStart = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.WithField("component", "server")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	stores, cleanup, err := backend.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to create stores: %w", err)
	}
	defer cleanup()

	s := newServer(cfg, stores, logger)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Info("received signal, initiating graceful shutdown")
			cancel()
		case <-done:
			return
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Warn("received second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-done:
		}
	}()

	// Scheduler
	scheduler, err := s.startScheduler(ctx)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() {
			<-scheduler.Stop().Done()
		}()
	}
	if cfg.Schedule.RunOnStart {
		go s.runBatch(ctx)
	}

	// HTTP server
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown timed out")
	}

	log.Info("shutdown complete")
	return nil
}

// startScheduler registers the batch on the configured cron schedule.
// It returns nil when no schedule is configured.
func (s *Server) startScheduler(ctx context.Context) (*cron.Cron, error) {
	if s.cfg.Schedule.Cron == "" {
		return nil, nil
	}

	c := cron.New(cron.WithLogger(cron.PrintfLogger(s.log)))
	if _, err := c.AddFunc(s.cfg.Schedule.Cron, func() { s.runBatch(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", s.cfg.Schedule.Cron, err)
	}
	c.Start()

	s.log.WithField("schedule", s.cfg.Schedule.Cron).Info("batch scheduler started")
	return c, nil
}

// runBatch executes one scenario batch, skipping when one is in flight.
func (s *Server) runBatch(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Info("batch already running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	start := time.Now()
	result, err := s.orch.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.runs++
	s.lastRun = start
	if err != nil {
		s.lastErr = err.Error()
		s.log.WithError(err).Error("batch failed")
		return
	}
	s.lastJobID = result.JobID
	s.lastErr = ""
	if len(result.Errors) > 0 {
		s.lastErr = fmt.Sprintf("%d scenario(s) failed", len(result.Errors))
	}

	s.log.WithFields(logrus.Fields{
		"job_id":    result.JobID,
		"scenarios": len(result.Scenarios),
		"files":     len(result.Files),
		"duration":  time.Since(start),
	}).Info("batch completed")
}

func (s *Server) batchStatus() api.BatchStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return api.BatchStatus{
		Schedule:  s.cfg.Schedule.Cron,
		Running:   s.running,
		Runs:      s.runs,
		LastRun:   s.lastRun,
		LastJobID: s.lastJobID,
		LastError: s.lastErr,
	}
}
