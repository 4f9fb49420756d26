package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/storage"
	"contagion-lab/internal/verification"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(Options{
		BatchStatus: func() BatchStatus { return BatchStatus{Schedule: "@daily", Runs: 2} },
	}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func trivialSeries(steps int) domain.SeriesConfig {
	return domain.SeriesConfig{
		Params:        domain.NetworkParams{Policy: domain.PolicyTrivial, Nodes: 10},
		ShockType:     domain.ShockUniform,
		Target:        -1,
		MaxMagnitude:  1,
		Steps:         steps,
		MaxIterations: 100,
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv.URL+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status StatusResponse
	decodeBody(t, resp, &status)
	assert.Equal(t, "running", status.Status)
	require.NotNil(t, status.Batch)
	assert.Equal(t, "@daily", status.Batch.Schedule)
	assert.Equal(t, 2, status.Batch.Runs)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)

	get(t, srv.URL+"/health")
	resp := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "contagion_lab_api_requests_total")
}

func TestCreateNetwork(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/networks", domain.NetworkParams{
		Policy:                domain.PolicyRandom,
		Nodes:                 8,
		ConnectionProbability: 0.5,
		Seed:                  42,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap domain.NetworkSnapshot
	decodeBody(t, resp, &snap)
	assert.Equal(t, domain.PolicyRandom, snap.Policy)
	assert.Equal(t, 8, snap.Size)
	assert.Len(t, snap.Nodes, 8)
}

func TestCreateNetwork_InvalidParameter(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/networks", domain.NetworkParams{
		Policy:                domain.PolicyRandom,
		Nodes:                 5,
		ConnectionProbability: 1.5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e ErrorResponse
	decodeBody(t, resp, &e)
	assert.Contains(t, e.Error, "invalid parameter")
}

func TestCreateNetwork_TooManyBanks(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/networks", domain.NetworkParams{
		Policy:                domain.PolicyRandom,
		Nodes:                 200000,
		ConnectionProbability: 0.5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSeries_TooManySteps(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/series", trivialSeries(1_000_000_000))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateNetwork_MalformedBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/networks", "application/json", strings.NewReader(`{"policy":`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSimulation_CreateAndGet(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/simulations", SimulationRequest{
		Params: domain.NetworkParams{Policy: domain.PolicyTrivial, Nodes: 10},
		Shock:  domain.ShockConfig{Type: domain.ShockUniform, Magnitude: 0.5, Target: -1},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created SimulationResponse
	decodeBody(t, resp, &created)
	require.NotNil(t, created.Run)
	require.NotNil(t, created.Network)
	assert.Equal(t, 10, created.Run.Result.DefaultCount)
	assert.Equal(t, DefaultMaxIterations, created.Run.MaxIterations)
	assert.Len(t, created.Network.Nodes, 10)

	resp = get(t, srv.URL+"/api/v1/simulations/"+created.Run.RunID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var run domain.SimulationRun
	decodeBody(t, resp, &run)
	assert.Equal(t, created.Run.RunID, run.RunID)
	assert.Equal(t, created.Run.Result.DefaultCount, run.Result.DefaultCount)
}

func TestSimulation_InvalidMagnitude(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/simulations", SimulationRequest{
		Params: domain.NetworkParams{Policy: domain.PolicyTrivial, Nodes: 10},
		Shock:  domain.ShockConfig{Type: domain.ShockUniform, Magnitude: 2},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSimulation_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv.URL+"/api/v1/simulations/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSeries_CreateGetAndReports(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/series", trivialSeries(3))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.SeriesResult
	decodeBody(t, resp, &created)
	require.Len(t, created.Points, 3)
	require.NotEmpty(t, created.SeriesID)

	base := srv.URL + "/api/v1/series/" + created.SeriesID

	resp = get(t, base)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stored domain.SeriesResult
	decodeBody(t, resp, &stored)
	assert.Equal(t, created.SeriesID, stored.SeriesID)

	resp = get(t, base+"/report.md")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
	md, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(md), "# Shock Series Report")
	assert.Contains(t, string(md), created.SeriesID)

	resp = get(t, base+"/points.csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	csv, _ := io.ReadAll(resp.Body)
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "series_id,point_index"))
}

func TestSeries_InvalidSteps(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/series", trivialSeries(1))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSeries_NotFound(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"", "/report.md", "/points.csv"} {
		resp := get(t, srv.URL+"/api/v1/series/missing"+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestSeries_Verify(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/series", trivialSeries(5))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created domain.SeriesResult
	decodeBody(t, resp, &created)

	resp = postJSON(t, srv.URL+"/api/v1/series/"+created.SeriesID+"/verify", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result verification.VerificationResult
	decodeBody(t, resp, &result)
	assert.True(t, result.Match)
	assert.Empty(t, result.Divergences)

	resp = postJSON(t, srv.URL+"/api/v1/series/missing/verify", struct{}{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSeriesStream(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/series/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(trivialSeries(4)))

	var (
		progress []StreamEvent
		final    StreamEvent
	)
	for {
		var ev StreamEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type != EventProgress {
			final = ev
			break
		}
		progress = append(progress, ev)
	}

	require.Len(t, progress, 4)
	seen := make(map[int]bool)
	for i, ev := range progress {
		require.NotNil(t, ev.Progress)
		assert.Equal(t, i+1, ev.Progress.Completed)
		assert.Equal(t, 4, ev.Progress.Total)
		seen[ev.Progress.Index] = true
	}
	assert.Len(t, seen, 4)

	require.Equal(t, EventResult, final.Type, final.Error)
	require.NotNil(t, final.Result)
	assert.Len(t, final.Result.Points, 4)
	assert.Equal(t, progress[0].Progress.SeriesID, final.Result.SeriesID)

	resp := get(t, srv.URL+"/api/v1/series/"+final.Result.SeriesID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSeriesStream_Origin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		ok      bool
	}{
		{"no origin header", nil, "", true},
		{"cross origin rejected by default", nil, "https://evil.example.com", false},
		{"listed origin", []string{"https://ui.example.com/"}, "https://ui.example.com", true},
		{"unlisted origin", []string{"https://ui.example.com"}, "https://evil.example.com", false},
		{"wildcard", []string{"*"}, "https://any.example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(New(Options{AllowedOrigins: tt.allowed}).Handler())
			defer srv.Close()

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/series/stream"
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if tt.ok {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestSeriesStream_SameOriginAllowed(t *testing.T) {
	srv := httptest.NewServer(New(Options{AllowedOrigins: []string{"https://ui.example.com"}}).Handler())
	defer srv.Close()

	header := http.Header{"Origin": []string{srv.URL}}
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/series/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	conn.Close()
}

func TestSeriesStream_InvalidConfig(t *testing.T) {
	srv := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/series/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	cfg := trivialSeries(4)
	cfg.MaxMagnitude = 3
	require.NoError(t, conn.WriteJSON(cfg))

	var ev StreamEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, http.StatusBadRequest, ev.Status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("nodes: %w", domain.ErrInvalidParameter), http.StatusBadRequest},
		{fmt.Errorf("shock[0]: %w", domain.ErrShockExceedsAssets), http.StatusUnprocessableEntity},
		{storage.ErrNotFound, http.StatusNotFound},
		{verification.ErrSeriesNotFound, http.StatusNotFound},
		{errBadRequest, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
