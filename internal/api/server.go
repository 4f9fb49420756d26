// Package api serves the contagion engine over HTTP for UI consumers:
// network generation, shock-and-clear runs, shock series with reports,
// determinism checks and a websocket stream of series progress.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"contagion-lab/internal/logging"
	"contagion-lab/internal/observability"
	"contagion-lab/internal/reporting"
	"contagion-lab/internal/series"
	"contagion-lab/internal/simulation"
	"contagion-lab/internal/storage"
	"contagion-lab/internal/storage/memory"
	"contagion-lab/internal/verification"
)

// DefaultMaxIterations is used when a request leaves max_iterations unset.
const DefaultMaxIterations = 100

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// BatchStatus describes the scheduled batch runner for /status.
type BatchStatus struct {
	Schedule  string    `json:"schedule,omitempty"`
	Running   bool      `json:"running"`
	Runs      int       `json:"runs"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastJobID string    `json:"last_job_id,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Server holds the API dependencies and request counters.
type Server struct {
	simulator     *simulation.Simulator
	runner        *series.Runner
	runStore      storage.RunStore
	seriesStore   storage.SeriesStore
	verifier      verification.Verifier
	generator     *reporting.Generator
	batchStatus   func() BatchStatus
	maxIterations int
	upgrader      *websocket.Upgrader
	log           logrus.FieldLogger

	startedAt time.Time

	mu          sync.Mutex
	simulations int
	sweeps      int
	streams     int
}

// Options contains configuration for creating a Server.
type Options struct {
	Simulator   *simulation.Simulator // must share RunStore to serve GET /simulations/{id}
	Runner      *series.Runner        // must share SeriesStore to serve GET /series/{id}
	RunStore    storage.RunStore      // defaults to an in-memory store
	SeriesStore storage.SeriesStore   // defaults to an in-memory store
	Verifier    verification.Verifier // defaults to a replay verifier over SeriesStore
	BatchStatus func() BatchStatus    // optional

	MaxIterations  int
	AllowedOrigins []string // extra websocket origins; same-origin is always allowed
	Logger         logrus.FieldLogger
}

// New creates an API server.
func New(opts Options) *Server {
	if opts.RunStore == nil {
		opts.RunStore = memory.NewRunStore()
	}
	if opts.SeriesStore == nil {
		opts.SeriesStore = memory.NewSeriesStore()
	}

	simulator := opts.Simulator
	if simulator == nil {
		simulator = simulation.NewSimulator(simulation.SimulatorOptions{
			RunStore: opts.RunStore,
			Logger:   opts.Logger,
		})
	}
	runner := opts.Runner
	if runner == nil {
		runner = series.NewRunner(series.RunnerOptions{
			Simulator:   simulator,
			SeriesStore: opts.SeriesStore,
			Logger:      opts.Logger,
		})
	}
	verifier := opts.Verifier
	if verifier == nil {
		verifier = verification.NewReplayVerifier(verification.ReplayVerifierOptions{
			SeriesStore: opts.SeriesStore,
		})
	}
	maxIterations := opts.MaxIterations
	if maxIterations < 1 {
		maxIterations = DefaultMaxIterations
	}

	return &Server{
		simulator:     simulator,
		runner:        runner,
		runStore:      opts.RunStore,
		seriesStore:   opts.SeriesStore,
		verifier:      verifier,
		generator:     reporting.NewGenerator(opts.RunStore, opts.SeriesStore),
		batchStatus:   opts.BatchStatus,
		maxIterations: maxIterations,
		upgrader:      newUpgrader(opts.AllowedOrigins),
		log:           logging.Component(opts.Logger, "api"),
		startedAt:     time.Now(),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/networks", s.handleCreateNetwork).Methods(http.MethodPost)
	v1.HandleFunc("/simulations", s.handleCreateSimulation).Methods(http.MethodPost)
	v1.HandleFunc("/simulations/{id}", s.handleGetSimulation).Methods(http.MethodGet)

	// stream before {id} so it is not captured as a series ID
	v1.HandleFunc("/series/stream", s.handleSeriesStream).Methods(http.MethodGet)
	v1.HandleFunc("/series", s.handleCreateSeries).Methods(http.MethodPost)
	v1.HandleFunc("/series/{id}", s.handleGetSeries).Methods(http.MethodGet)
	v1.HandleFunc("/series/{id}/report.md", s.handleSeriesReport).Methods(http.MethodGet)
	v1.HandleFunc("/series/{id}/points.csv", s.handleSeriesPoints).Methods(http.MethodGet)
	v1.HandleFunc("/series/{id}/verify", s.handleVerifySeries).Methods(http.MethodPost)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status        string       `json:"status"`
	Uptime        string       `json:"uptime"`
	StartedAt     time.Time    `json:"started_at"`
	Simulations   int          `json:"simulations"`
	Series        int          `json:"series"`
	StreamClients int          `json:"stream_clients"`
	Batch         *BatchStatus `json:"batch,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.startedAt).Round(time.Second).String(),
		StartedAt:     s.startedAt,
		Simulations:   s.simulations,
		Series:        s.sweeps,
		StreamClients: s.streams,
	}
	s.mu.Unlock()

	if s.batchStatus != nil {
		b := s.batchStatus()
		resp.Batch = &b
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}
