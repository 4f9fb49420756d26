package network

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"contagion-lab/internal/domain"
)

func TestBank_Balance(t *testing.T) {
	b := NewBank(110, 3600, 100, 3600)

	if got := b.Balance(); got != 10 {
		t.Errorf("expected balance 10, got %f", got)
	}
	if b.Defaulted() {
		t.Error("bank with positive balance should not be defaulted")
	}

	b.OutsideAsset = 100
	if !b.Defaulted() {
		t.Error("bank with zero balance should be defaulted")
	}
}

func TestGenerateTrivial_Constants(t *testing.T) {
	net, err := GenerateTrivial(10)
	if err != nil {
		t.Fatalf("GenerateTrivial failed: %v", err)
	}

	for i := range 10 {
		for j := range 10 {
			wantL, wantR := 400.0, 1.0/9
			if i == j {
				wantL, wantR = 0, 0
			}
			if got := net.Obligation(i, j); got != wantL {
				t.Errorf("L[%d][%d] = %f, want %f", i, j, got, wantL)
			}
			if got := net.RelativeLiability(i, j); got != wantR {
				t.Errorf("R[%d][%d] = %f, want %f", i, j, got, wantR)
			}
		}
		if net.DuePayments[i] != 3700 {
			t.Errorf("duePayments[%d] = %f, want 3700", i, net.DuePayments[i])
		}
		if net.OutsideAsset[i] != 110 || net.OutsideLiability[i] != 100 {
			t.Errorf("bank %d: outside asset/liability = %f/%f", i, net.OutsideAsset[i], net.OutsideLiability[i])
		}
		if net.NetWorth[i] != TrivialNetWorth {
			t.Errorf("netWorth[%d] = %f, want %f", i, net.NetWorth[i], TrivialNetWorth)
		}
		if net.DefaultVector[i] {
			t.Errorf("bank %d should not start defaulted", i)
		}
	}

	if net.SumOutsideAssets != 1100 {
		t.Errorf("sumOutsideAssets = %f, want 1100", net.SumOutsideAssets)
	}
	if err := net.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestGenerateTrivial_SingleBank(t *testing.T) {
	net, err := GenerateTrivial(1)
	if err != nil {
		t.Fatalf("GenerateTrivial failed: %v", err)
	}
	if net.DuePayments[0] != 100 {
		t.Errorf("duePayments = %f, want 100", net.DuePayments[0])
	}
	if len(net.Links()) != 0 {
		t.Errorf("expected no links, got %d", len(net.Links()))
	}
}

func TestGenerateRandom_Invariants(t *testing.T) {
	for seed := uint64(0); seed < 25; seed++ {
		net, err := GenerateRandom(12, 0.4, NewRand(seed))
		if err != nil {
			t.Fatalf("seed %d: GenerateRandom failed: %v", seed, err)
		}
		if err := net.Validate(); err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}

		owed := net.Owed()
		for i := range net.Size {
			if net.DuePayments[i] != owed[i]+net.OutsideLiability[i] {
				t.Errorf("seed %d bank %d: duePayments mismatch", seed, i)
			}
			if net.Banks[i].Balance() < 0 {
				t.Errorf("seed %d bank %d: negative starting balance %f", seed, i, net.Banks[i].Balance())
			}
		}

		if sum := floats.Sum(net.Vulnerability); sum > 0 && math.Abs(sum-1) > 1e-9 {
			t.Errorf("seed %d: vulnerabilities sum to %f", seed, sum)
		}
		if got := floats.Sum(net.OutsideAsset); got != net.SumOutsideAssets {
			t.Errorf("seed %d: sumOutsideAssets %f, want %f", seed, net.SumOutsideAssets, got)
		}
	}
}

func TestGenerateRandom_NoLinks(t *testing.T) {
	net, err := GenerateRandom(5, 0, NewRand(7))
	if err != nil {
		t.Fatalf("GenerateRandom failed: %v", err)
	}

	if links := net.Links(); len(links) != 0 {
		t.Errorf("expected no links with p=0, got %d", len(links))
	}
	for i := range net.Size {
		if net.DuePayments[i] != 0 {
			t.Errorf("bank %d: duePayments = %f, want 0", i, net.DuePayments[i])
		}
		if net.Vulnerability[i] != 0 {
			t.Errorf("bank %d: vulnerability = %f, want 0", i, net.Vulnerability[i])
		}
		if net.OutsideAsset[i] <= 0 || net.OutsideAsset[i] >= 125 {
			t.Errorf("bank %d: outside asset %f outside (0, n^3)", i, net.OutsideAsset[i])
		}
	}
}

func TestGenerateRandom_Deterministic(t *testing.T) {
	a, err := GenerateRandom(8, 0.5, NewRand(42))
	if err != nil {
		t.Fatalf("GenerateRandom failed: %v", err)
	}
	b, err := GenerateRandom(8, 0.5, NewRand(42))
	if err != nil {
		t.Fatalf("GenerateRandom failed: %v", err)
	}

	if !floats.Equal(a.OutsideAsset, b.OutsideAsset) {
		t.Error("same seed produced different outside assets")
	}
	for i := range 8 {
		for j := range 8 {
			if a.Obligation(i, j) != b.Obligation(i, j) {
				t.Fatalf("same seed produced different L[%d][%d]", i, j)
			}
		}
	}
}

func TestGenerateCorePeriphery_Structure(t *testing.T) {
	net, err := GenerateCorePeriphery(4, 12, 0.9, 0.3, NewRand(3))
	if err != nil {
		t.Fatalf("GenerateCorePeriphery failed: %v", err)
	}
	if err := net.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if net.Size != 16 || net.CoreSize != 4 {
		t.Fatalf("size/core = %d/%d, want 16/4", net.Size, net.CoreSize)
	}

	owed, owedTo := net.Owed(), net.OwedTo()
	for i := range net.Size {
		base := peripheryBase
		if net.IsCore(i) {
			base = coreBase
		}
		if net.OutsideLiability[i] != base/2 {
			t.Errorf("bank %d: outside liability %f, want %f", i, net.OutsideLiability[i], base/2)
		}
		want := base
		if d := owedTo[i] - owed[i]; d < 0 {
			want = base - d*1.1
		}
		if math.Abs(net.OutsideAsset[i]-want) > 1e-9 {
			t.Errorf("bank %d: outside asset %f, want %f", i, net.OutsideAsset[i], want)
		}
	}

	// periphery-periphery links are capped by Binomial(200, 0.7)
	for i := 4; i < 16; i++ {
		for j := 4; j < 16; j++ {
			if v := net.Obligation(i, j); v > 200 {
				t.Errorf("periphery link L[%d][%d] = %f exceeds 200", i, j, v)
			}
		}
	}
}

func TestGenerate_InvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		params domain.NetworkParams
	}{
		{"zero nodes", domain.NetworkParams{Policy: domain.PolicyRandom, Nodes: 0, ConnectionProbability: 0.5}},
		{"probability above one", domain.NetworkParams{Policy: domain.PolicyRandom, Nodes: 5, ConnectionProbability: 1.5}},
		{"negative probability", domain.NetworkParams{Policy: domain.PolicyRandom, Nodes: 5, ConnectionProbability: -0.1}},
		{"NaN probability", domain.NetworkParams{Policy: domain.PolicyRandom, Nodes: 5, ConnectionProbability: math.NaN()}},
		{"no core", domain.NetworkParams{Policy: domain.PolicyCorePeriphery, CoreNodes: 0, PeripheryNodes: 3}},
		{"bad periphery probability", domain.NetworkParams{Policy: domain.PolicyCorePeriphery, CoreNodes: 2, PeripheryNodes: 3, PeripheryConnectionProbability: 2}},
		{"too many nodes", domain.NetworkParams{Policy: domain.PolicyRandom, Nodes: MaxBanks + 1, ConnectionProbability: 0.5}},
		{"huge nodes", domain.NetworkParams{Policy: domain.PolicyRandom, Nodes: 200000, ConnectionProbability: 0.5}},
		{"core periphery sum above cap", domain.NetworkParams{Policy: domain.PolicyCorePeriphery, CoreNodes: MaxBanks, PeripheryNodes: 1, CoreConnectionProbability: 0.5, PeripheryConnectionProbability: 0.5}},
		{"core periphery overflow", domain.NetworkParams{Policy: domain.PolicyCorePeriphery, CoreNodes: math.MaxInt, PeripheryNodes: 1, CoreConnectionProbability: 0.5, PeripheryConnectionProbability: 0.5}},
		{"trivial too many nodes", domain.NetworkParams{Policy: domain.PolicyTrivial, Nodes: MaxBanks + 1}},
		{"trivial zero nodes", domain.NetworkParams{Policy: domain.PolicyTrivial}},
		{"unknown policy", domain.NetworkParams{Policy: "lattice", Nodes: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, err := GenerateSeeded(tt.params)
			if !errors.Is(err, domain.ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
			if net != nil {
				t.Error("expected nil network on error")
			}
		})
	}
}

func TestClone_Isolation(t *testing.T) {
	base, err := GenerateRandom(6, 0.5, NewRand(9))
	if err != nil {
		t.Fatalf("GenerateRandom failed: %v", err)
	}
	want := cloneFloats(base.OutsideAsset)

	c := base.Clone()
	for i := range c.Size {
		c.OutsideAsset[i] = 0
		c.Banks[i].OutsideAsset = 0
		c.DefaultVector[i] = true
	}

	if !floats.Equal(base.OutsideAsset, want) {
		t.Error("mutating clone changed base outside assets")
	}
	for i, b := range base.Banks {
		if b.OutsideAsset != want[i] {
			t.Errorf("bank %d: clone mutation leaked into base", i)
		}
		if base.DefaultVector[i] {
			t.Errorf("bank %d: clone default leaked into base", i)
		}
	}
}

func TestSnapshot(t *testing.T) {
	net, err := GenerateTrivial(3)
	if err != nil {
		t.Fatalf("GenerateTrivial failed: %v", err)
	}

	snap := net.Snapshot()
	if snap.Size != 3 || len(snap.Nodes) != 3 {
		t.Fatalf("unexpected snapshot size %d/%d", snap.Size, len(snap.Nodes))
	}
	if len(snap.Links) != 6 {
		t.Errorf("expected 6 links, got %d", len(snap.Links))
	}
	if snap.Nodes[1].Balance != 10 {
		t.Errorf("node balance = %f, want 10", snap.Nodes[1].Balance)
	}
}
