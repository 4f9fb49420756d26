// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	SimulationsTotal    *prometheus.CounterVec
	DefaultsPerRun      prometheus.Histogram
	ClearingIterations  prometheus.Histogram
	ClearingNonConverge prometheus.Counter
	NetworksGenerated   *prometheus.CounterVec

	// Series metrics
	SeriesRunsTotal *prometheus.CounterVec
	SeriesDuration  *prometheus.HistogramVec
	SeriesPoints    prometheus.Counter

	// Batch metrics
	BatchRunsTotal   *prometheus.CounterVec
	BatchDuration    prometheus.Histogram
	ReportsGenerated prometheus.Counter

	// API metrics
	HTTPRequests  *prometheus.CounterVec
	StreamClients prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulBatch prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "contagion_lab"
	}

	return &Metrics{
		// Simulation metrics
		SimulationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of shock-and-clear runs by outcome",
		}, []string{"outcome"}),
		DefaultsPerRun: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "default_proportion",
			Help:      "Proportion of defaulted banks per run",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ClearingIterations: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "clearing",
			Name:      "iterations",
			Help:      "Fixed-point iterations per clearing computation",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
		}),
		ClearingNonConverge: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clearing",
			Name:      "non_converged_total",
			Help:      "Total number of clearing computations that hit the iteration cap",
		}),
		NetworksGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "generated_total",
			Help:      "Total number of generated networks by policy",
		}, []string{"policy"}),

		// Series metrics
		SeriesRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "series",
			Name:      "runs_total",
			Help:      "Total number of shock series by status",
		}, []string{"status"}),
		SeriesDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "series",
			Name:      "duration_seconds",
			Help:      "Shock series duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"policy"}),
		SeriesPoints: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "series",
			Name:      "points_total",
			Help:      "Total number of series points computed",
		}),

		// Batch metrics
		BatchRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "runs_total",
			Help:      "Total number of batch runs by status",
		}, []string{"status"}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Batch execution duration in seconds",
			Buckets:   []float64{0.1, 1, 5, 10, 30, 60, 120, 300},
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status code",
		}, []string{"route", "code"}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "stream_clients",
			Help:      "Number of connected series stream clients",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulBatch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_batch_timestamp",
			Help:      "Unix timestamp of last successful batch run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordNetworkGenerated increments the generated networks counter.
func RecordNetworkGenerated(policy string) {
	DefaultMetrics.NetworksGenerated.WithLabelValues(policy).Inc()
}

// RecordSimulation records one shock-and-clear run.
// outcome is "ok" or "rejected".
func RecordSimulation(outcome string, defaultProportion float64) {
	DefaultMetrics.SimulationsTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		DefaultMetrics.DefaultsPerRun.Observe(defaultProportion)
	}
}

// RecordClearing records clearing convergence.
func RecordClearing(iterations int, converged bool) {
	DefaultMetrics.ClearingIterations.Observe(float64(iterations))
	if !converged {
		DefaultMetrics.ClearingNonConverge.Inc()
	}
}

// RecordSeries records a completed or failed shock series.
func RecordSeries(policy, status string, points int, durationSeconds float64) {
	DefaultMetrics.SeriesRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.SeriesDuration.WithLabelValues(policy).Observe(durationSeconds)
	DefaultMetrics.SeriesPoints.Add(float64(points))
}

// RecordBatchRun records a batch run.
func RecordBatchRun(status string, durationSeconds float64, reports int) {
	DefaultMetrics.BatchRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.BatchDuration.Observe(durationSeconds)
	DefaultMetrics.ReportsGenerated.Add(float64(reports))
	if status == "ok" {
		DefaultMetrics.LastSuccessfulBatch.SetToCurrentTime()
	}
}

// RecordHTTPRequest records an API request.
func RecordHTTPRequest(route, code string) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
}

// StreamOpened increments the connected stream clients gauge.
func StreamOpened() {
	DefaultMetrics.StreamClients.Inc()
}

// StreamClosed decrements the connected stream clients gauge.
func StreamClosed() {
	DefaultMetrics.StreamClients.Dec()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
