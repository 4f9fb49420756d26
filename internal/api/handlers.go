package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/network"
	"contagion-lab/internal/observability"
	"contagion-lab/internal/reporting"
)

// SimulationRequest is the body of POST /api/v1/simulations.
type SimulationRequest struct {
	Params        domain.NetworkParams `json:"params"`
	Shock         domain.ShockConfig   `json:"shock"`
	MaxIterations int                  `json:"max_iterations,omitempty"`
}

// SimulationResponse carries the run and the post-clearing network.
type SimulationResponse struct {
	Run     *domain.SimulationRun   `json:"run"`
	Network *domain.NetworkSnapshot `json:"network"`
}

func (s *Server) handleCreateNetwork(w http.ResponseWriter, r *http.Request) {
	var params domain.NetworkParams
	if err := decode(r, w, &params); err != nil {
		s.writeError(w, r, err)
		return
	}

	net, err := network.Generate(params, network.NewRand(params.Seed))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	observability.RecordNetworkGenerated(string(params.Policy))

	writeJSON(w, http.StatusOK, net.Snapshot())
}

func (s *Server) handleCreateSimulation(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	if err := decode(r, w, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.MaxIterations == 0 {
		req.MaxIterations = s.maxIterations
	}

	run, net, err := s.simulator.Run(r.Context(), req.Params, req.Shock, req.MaxIterations)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mu.Lock()
	s.simulations++
	s.mu.Unlock()

	snap := net.Snapshot()
	writeJSON(w, http.StatusCreated, SimulationResponse{Run: run, Network: &snap})
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	run, err := s.runStore.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// seriesConfig fills unset sweep fields with server defaults.
func (s *Server) seriesConfig(cfg domain.SeriesConfig) domain.SeriesConfig {
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = s.maxIterations
	}
	if cfg.ShockType == "" {
		cfg.ShockType = domain.ShockUniform
	}
	return cfg
}

func (s *Server) handleCreateSeries(w http.ResponseWriter, r *http.Request) {
	var cfg domain.SeriesConfig
	if err := decode(r, w, &cfg); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.runner.Run(r.Context(), s.seriesConfig(cfg), nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.mu.Lock()
	s.sweeps++
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	result, err := s.seriesStore.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) seriesReport(r *http.Request) (*reporting.SeriesReport, error) {
	return s.generator.Series(r.Context(), mux.Vars(r)["id"])
}

func (s *Server) handleSeriesReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.seriesReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeText(w, "text/markdown; charset=utf-8", reporting.RenderSeriesMarkdown(report))
}

func (s *Server) handleSeriesPoints(w http.ResponseWriter, r *http.Request) {
	report, err := s.seriesReport(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeText(w, "text/csv; charset=utf-8", reporting.RenderPointsCSV(report))
}

func (s *Server) handleVerifySeries(w http.ResponseWriter, r *http.Request) {
	result, err := s.verifier.VerifySeries(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
