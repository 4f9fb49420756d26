package idhash

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"contagion-lab/internal/domain"
)

// ComputeRunID computes a deterministic run_id for a single simulation.
// Formula: base58(SHA256("run"|params|shock_type|magnitude|target|max_iterations))
func ComputeRunID(params domain.NetworkParams, shock domain.ShockConfig, maxIterations int) string {
	return hash("run",
		canonicalParams(params),
		string(shock.Type),
		formatFloat(shock.Magnitude),
		strconv.Itoa(shock.Target),
		strconv.Itoa(maxIterations),
	)
}

// ComputeSeriesID computes a deterministic series_id for a shock sweep.
// Formula: base58(SHA256("series"|params|shock_type|target|max_magnitude|steps|max_iterations))
func ComputeSeriesID(cfg domain.SeriesConfig) string {
	return hash("series",
		canonicalParams(cfg.Params),
		string(cfg.ShockType),
		strconv.Itoa(cfg.Target),
		formatFloat(cfg.MaxMagnitude),
		strconv.Itoa(cfg.Steps),
		strconv.Itoa(cfg.MaxIterations),
	)
}

// canonicalParams renders only the fields the policy reads, so unused
// fields never change an ID.
func canonicalParams(p domain.NetworkParams) string {
	switch p.Policy {
	case domain.PolicyRandom:
		return fmt.Sprintf("%s:%d:%s:%d", p.Policy, p.Nodes, formatFloat(p.ConnectionProbability), p.Seed)
	case domain.PolicyCorePeriphery:
		return fmt.Sprintf("%s:%d:%d:%s:%s:%d", p.Policy, p.CoreNodes, p.PeripheryNodes,
			formatFloat(p.CoreConnectionProbability), formatFloat(p.PeripheryConnectionProbability), p.Seed)
	default:
		return fmt.Sprintf("%s:%d", p.Policy, p.Nodes)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func hash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return base58.Encode(sum[:])
}
