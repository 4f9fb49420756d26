package decision

import (
	"errors"
	"strings"
	"testing"

	"contagion-lab/internal/domain"
)

func resilientInput() DecisionInput {
	return DecisionInput{
		Scenario:              "sparse",
		Runs:                  20,
		HasThreshold:          true,
		ThresholdMean:         0.45, // >= 0.3
		FinalDefaultRate:      0.30, // <= 0.5
		NonConvergedShare:     0,
		MaxDispersion:         0.12,
		BaselineDefaultRate:   0,
		SmallShockDefaultRate: 0.05,
	}
}

func TestEvaluate_Resilient(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())

	result, err := evaluator.Evaluate(resilientInput())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Verdict != VerdictResilient {
		t.Errorf("Expected RESILIENT, got %s", result.Verdict)
	}
	if len(result.Criteria) != 4 {
		t.Fatalf("Expected 4 criteria, got %d", len(result.Criteria))
	}
	for i, c := range result.Criteria {
		if !c.Pass {
			t.Errorf("criterion %d (%s) should pass", i+1, c.Name)
		}
	}
	for i, c := range result.Triggers {
		if !c.Pass {
			t.Errorf("trigger %d (%s) should not be triggered", i+1, c.Name)
		}
	}
}

func TestEvaluate_NoThresholdIsResilient(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())

	input := resilientInput()
	input.HasThreshold = false
	input.ThresholdMean = 0

	result, err := evaluator.Evaluate(input)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Verdict != VerdictResilient {
		t.Errorf("Expected RESILIENT, got %s", result.Verdict)
	}
	if result.Criteria[0].Actual != "none" {
		t.Errorf("Expected actual 'none', got %q", result.Criteria[0].Actual)
	}
}

func TestEvaluate_Fragile_LowThreshold(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())

	input := resilientInput()
	input.ThresholdMean = 0.1

	result, err := evaluator.Evaluate(input)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Verdict != VerdictFragile {
		t.Errorf("Expected FRAGILE, got %s", result.Verdict)
	}
	if result.Criteria[0].Pass {
		t.Error("threshold criterion should fail")
	}
}

func TestEvaluate_Fragile_EachCriterion(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DecisionInput)
		index  int
	}{
		{"final default rate", func(in *DecisionInput) { in.FinalDefaultRate = 0.9 }, 1},
		{"non-converged", func(in *DecisionInput) { in.NonConvergedShare = 0.2 }, 2},
		{"dispersion", func(in *DecisionInput) { in.MaxDispersion = 0.5 }, 3},
	}

	evaluator := NewEvaluator(DefaultThresholds())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := resilientInput()
			tt.mutate(&input)

			result, err := evaluator.Evaluate(input)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if result.Verdict != VerdictFragile {
				t.Errorf("Expected FRAGILE, got %s", result.Verdict)
			}
			if result.Criteria[tt.index].Pass {
				t.Errorf("criterion %d should fail", tt.index+1)
			}
		})
	}
}

func TestEvaluate_Fragile_Triggers(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds())

	input := resilientInput()
	input.SmallShockDefaultRate = 0.8
	result, err := evaluator.Evaluate(input)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Verdict != VerdictFragile || result.Triggers[0].Pass {
		t.Errorf("collapse trigger should fire, got %s", result.Verdict)
	}

	input = resilientInput()
	input.BaselineDefaultRate = 0.05
	result, err = evaluator.Evaluate(input)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Verdict != VerdictFragile || result.Triggers[1].Pass {
		t.Errorf("baseline trigger should fire, got %s", result.Verdict)
	}
}

func TestEvaluate_CustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.MinCriticalThreshold = 0.5

	result, err := NewEvaluator(th).Evaluate(resilientInput())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Verdict != VerdictFragile {
		t.Errorf("Expected FRAGILE with stricter threshold, got %s", result.Verdict)
	}
}

func TestEvaluate_NoRuns(t *testing.T) {
	_, err := NewEvaluator(DefaultThresholds()).Evaluate(DecisionInput{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestBuild_FromAggregate(t *testing.T) {
	agg := &domain.EnsembleAggregate{
		Scenario:      "cp",
		Runs:          3,
		ThresholdRuns: 2,
		ThresholdMean: 0.35,
		Points: []domain.EnsemblePoint{
			{ShockMagnitude: 0, DefaultRateMean: 0.02},
			{ShockMagnitude: 0.1, DefaultRateMean: 0.2},
			{ShockMagnitude: 0.2, DefaultRateMean: 0.4},
			{ShockMagnitude: 0.3, DefaultRateMean: 0.9},
		},
		FinalDefaultRateMean: 0.9,
		NonConvergedShare:    0.01,
		MaxDispersion:        0.2,
	}

	input, err := Build(agg, 0.2)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !input.HasThreshold || input.ThresholdMean != 0.35 {
		t.Errorf("unexpected threshold: %+v", input)
	}
	if input.BaselineDefaultRate != 0.02 {
		t.Errorf("BaselineDefaultRate = %v, want 0.02", input.BaselineDefaultRate)
	}
	if input.SmallShockDefaultRate != 0.4 {
		t.Errorf("SmallShockDefaultRate = %v, want 0.4", input.SmallShockDefaultRate)
	}
	if input.FinalDefaultRate != 0.9 {
		t.Errorf("FinalDefaultRate = %v, want 0.9", input.FinalDefaultRate)
	}
}

func TestBuild_Empty(t *testing.T) {
	if _, err := Build(nil, 0.2); !errors.Is(err, ErrEmptyAggregate) {
		t.Errorf("Expected ErrEmptyAggregate, got %v", err)
	}
	if _, err := Build(&domain.EnsembleAggregate{Runs: 1}, 0.2); !errors.Is(err, ErrEmptyAggregate) {
		t.Errorf("Expected ErrEmptyAggregate, got %v", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	input := resilientInput()
	input.FinalDefaultRate = 0.9
	result, err := NewEvaluator(DefaultThresholds()).Evaluate(input)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	md := RenderMarkdown(result)
	for _, want := range []string{
		"# Resilience Report",
		"## Verdict: FRAGILE",
		"Criteria: 3/4 passed",
		"Triggers: 0/2 triggered",
		"- criterion failed: Default rate at max shock",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}
