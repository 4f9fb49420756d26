package shock

import (
	"errors"
	"testing"

	"contagion-lab/internal/domain"
	"contagion-lab/internal/network"
)

func TestBuild_Uniform(t *testing.T) {
	net, err := network.GenerateTrivial(10)
	if err != nil {
		t.Fatalf("GenerateTrivial failed: %v", err)
	}

	shock, err := Build(net, domain.ShockConfig{Type: domain.ShockUniform, Magnitude: 0.5}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i, s := range shock {
		if s != 55 {
			t.Errorf("shock[%d] = %f, want 55", i, s)
		}
	}
}

func TestBuild_TargetedFixedBank(t *testing.T) {
	net, err := network.GenerateTrivial(4)
	if err != nil {
		t.Fatalf("GenerateTrivial failed: %v", err)
	}

	shock, err := Build(net, domain.ShockConfig{Type: domain.ShockTargeted, Magnitude: 1, Target: 2}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := []float64{0, 0, 110, 0}
	for i := range want {
		if shock[i] != want[i] {
			t.Errorf("shock[%d] = %f, want %f", i, shock[i], want[i])
		}
	}
}

func TestBuild_TargetedRandomBankIsSeeded(t *testing.T) {
	net, err := network.GenerateTrivial(20)
	if err != nil {
		t.Fatalf("GenerateTrivial failed: %v", err)
	}
	cfg := domain.ShockConfig{Type: domain.ShockTargeted, Magnitude: 0.3, Target: -1}

	a, err := Targets(net, cfg.Type, cfg.Target, network.NewRand(5))
	if err != nil {
		t.Fatalf("Targets failed: %v", err)
	}
	b, err := Targets(net, cfg.Type, cfg.Target, network.NewRand(5))
	if err != nil {
		t.Fatalf("Targets failed: %v", err)
	}
	if len(a) != 1 || a[0] != b[0] {
		t.Errorf("same seed picked different targets: %v vs %v", a, b)
	}
}

func TestBuild_CoreAndPeriphery(t *testing.T) {
	net, err := network.GenerateCorePeriphery(3, 5, 0.8, 0.2, network.NewRand(1))
	if err != nil {
		t.Fatalf("GenerateCorePeriphery failed: %v", err)
	}

	core, err := Build(net, domain.ShockConfig{Type: domain.ShockCore, Magnitude: 0.2}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	periphery, err := Build(net, domain.ShockConfig{Type: domain.ShockPeriphery, Magnitude: 0.2}, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for i := range net.Size {
		if net.IsCore(i) {
			if core[i] == 0 || periphery[i] != 0 {
				t.Errorf("core bank %d: core=%f periphery=%f", i, core[i], periphery[i])
			}
		} else if core[i] != 0 || periphery[i] == 0 {
			t.Errorf("periphery bank %d: core=%f periphery=%f", i, core[i], periphery[i])
		}
	}
}

func TestBuild_Invalid(t *testing.T) {
	trivial, err := network.GenerateTrivial(3)
	if err != nil {
		t.Fatalf("GenerateTrivial failed: %v", err)
	}

	tests := []struct {
		name string
		cfg  domain.ShockConfig
	}{
		{"magnitude above one", domain.ShockConfig{Type: domain.ShockUniform, Magnitude: 1.2}},
		{"negative magnitude", domain.ShockConfig{Type: domain.ShockUniform, Magnitude: -0.1}},
		{"target out of range", domain.ShockConfig{Type: domain.ShockTargeted, Magnitude: 0.5, Target: 3}},
		{"core on trivial", domain.ShockConfig{Type: domain.ShockCore, Magnitude: 0.5}},
		{"unknown type", domain.ShockConfig{Type: "wave", Magnitude: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(trivial, tt.cfg, network.NewRand(1))
			if !errors.Is(err, domain.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}
