package decision

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when the input carries no runs.
var ErrInvalidInput = errors.New("decision input has no runs")

// Evaluator evaluates resilience criteria.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates a new resilience evaluator.
func NewEvaluator(thresholds Thresholds) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Thresholds returns the evaluator's configuration.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate produces DecisionResult from DecisionInput.
// RESILIENT if ALL criteria pass and NO trigger fires.
// FRAGILE if ANY criterion fails or ANY trigger fires.
func (e *Evaluator) Evaluate(input DecisionInput) (*DecisionResult, error) {
	if input.Runs <= 0 {
		return nil, ErrInvalidInput
	}

	criteria := e.evaluateCriteria(input)
	triggers := e.evaluateTriggers(input)

	verdict := VerdictResilient
	for _, c := range append(append([]CriterionResult{}, criteria...), triggers...) {
		if !c.Pass {
			verdict = VerdictFragile
			break
		}
	}

	return &DecisionResult{
		Scenario: input.Scenario,
		Verdict:  verdict,
		Criteria: criteria,
		Triggers: triggers,
	}, nil
}

// evaluateCriteria evaluates the 4 resilience criteria.
func (e *Evaluator) evaluateCriteria(input DecisionInput) []CriterionResult {
	t := e.thresholds
	criteria := make([]CriterionResult, 4)

	// 1. Critical threshold high enough; no threshold at all means no cascade
	thresholdActual := "none"
	if input.HasThreshold {
		thresholdActual = fmt.Sprintf("%.3f", input.ThresholdMean)
	}
	criteria[0] = CriterionResult{
		Name:      "Critical shock threshold",
		Threshold: fmt.Sprintf(">= %.3f", t.MinCriticalThreshold),
		Actual:    thresholdActual,
		Pass:      !input.HasThreshold || input.ThresholdMean >= t.MinCriticalThreshold,
	}

	// 2. Default rate under the largest shock
	criteria[1] = CriterionResult{
		Name:      "Default rate at max shock",
		Threshold: fmt.Sprintf("<= %.2f%%", t.MaxFinalDefaultRate*100),
		Actual:    fmt.Sprintf("%.2f%%", input.FinalDefaultRate*100),
		Pass:      input.FinalDefaultRate <= t.MaxFinalDefaultRate,
	}

	// 3. Clearing reached equilibrium
	criteria[2] = CriterionResult{
		Name:      "Clearing converged",
		Threshold: fmt.Sprintf("non-converged <= %.2f%%", t.MaxNonConvergedShare*100),
		Actual:    fmt.Sprintf("%.2f%%", input.NonConvergedShare*100),
		Pass:      input.NonConvergedShare <= t.MaxNonConvergedShare,
	}

	// 4. Seeds agree
	criteria[3] = CriterionResult{
		Name:      "Ensemble dispersion",
		Threshold: fmt.Sprintf("stddev <= %.3f", t.MaxDispersion),
		Actual:    fmt.Sprintf("%.3f", input.MaxDispersion),
		Pass:      input.MaxDispersion <= t.MaxDispersion,
	}

	return criteria
}

// evaluateTriggers evaluates the 2 fragility triggers.
// Pass=true means NOT triggered, Pass=false means triggered.
func (e *Evaluator) evaluateTriggers(input DecisionInput) []CriterionResult {
	t := e.thresholds
	checks := make([]CriterionResult, 2)

	// 1. Collapse under a small shock
	checks[0] = CriterionResult{
		Name:      "Collapse under small shock",
		Threshold: fmt.Sprintf("default rate >= %.2f%% at magnitude <= %.2f", t.CollapseDefaultRate*100, t.SmallShockMagnitude),
		Actual:    fmt.Sprintf("%.2f%%", input.SmallShockDefaultRate*100),
		Pass:      input.SmallShockDefaultRate < t.CollapseDefaultRate,
	}

	// 2. Banks already insolvent before any shock
	checks[1] = CriterionResult{
		Name:      "Defaults without shock",
		Threshold: "default rate > 0 at magnitude 0",
		Actual:    fmt.Sprintf("%.2f%%", input.BaselineDefaultRate*100),
		Pass:      input.BaselineDefaultRate == 0,
	}

	return checks
}
