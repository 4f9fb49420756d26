package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"contagion-lab/internal/domain"
)

// Output formats
const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatCSV      = "csv"
)

// networkFlags binds the generation parameters shared by every command.
type networkFlags struct {
	policy     string
	nodes      int
	p          float64
	core       int
	periphery  int
	pCore      float64
	pPeriphery float64
	seed       uint64
}

func (f *networkFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.policy, "policy", string(domain.PolicyRandom), "Topology: random, core_periphery, trivial")
	fs.IntVar(&f.nodes, "nodes", 10, "Number of banks (random, trivial)")
	fs.Float64Var(&f.p, "p", 0.2, "Connection probability (random)")
	fs.IntVar(&f.core, "core", 5, "Core banks (core_periphery)")
	fs.IntVar(&f.periphery, "periphery", 15, "Periphery banks (core_periphery)")
	fs.Float64Var(&f.pCore, "p-core", 0.8, "Core connection probability (core_periphery)")
	fs.Float64Var(&f.pPeriphery, "p-periphery", 0.2, "Periphery connection probability (core_periphery)")
	fs.Uint64Var(&f.seed, "seed", 1, "RNG seed")
}

func (f *networkFlags) params() domain.NetworkParams {
	p := domain.NetworkParams{
		Policy: domain.Policy(f.policy),
		Seed:   f.seed,
	}
	switch p.Policy {
	case domain.PolicyRandom:
		p.Nodes = f.nodes
		p.ConnectionProbability = f.p
	case domain.PolicyCorePeriphery:
		p.CoreNodes = f.core
		p.PeripheryNodes = f.periphery
		p.CoreConnectionProbability = f.pCore
		p.PeripheryConnectionProbability = f.pPeriphery
	default:
		p.Nodes = f.nodes
	}
	return p
}

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (want one of %v)", format, allowed)
}

// output returns the writer for --out, stdout when empty.
func output(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
