package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders DecisionResult as Markdown string.
func RenderMarkdown(result *DecisionResult) string {
	var sb strings.Builder

	sb.WriteString("# Resilience Report\n\n")
	if result.Scenario != "" {
		sb.WriteString(fmt.Sprintf("Scenario: `%s`\n\n", result.Scenario))
	}
	sb.WriteString(fmt.Sprintf("## Verdict: %s\n\n", result.Verdict))

	// Resilience criteria table
	sb.WriteString("## Resilience Criteria\n\n")
	sb.WriteString("| # | Criterion | Threshold | Actual | Pass |\n")
	sb.WriteString("|---|-----------|-----------|--------|------|\n")
	passed := 0
	for i, c := range result.Criteria {
		passStr := "PASS"
		if c.Pass {
			passed++
		} else {
			passStr = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, passStr))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Criteria: %d/%d passed\n\n", passed, len(result.Criteria)))

	// Fragility triggers table
	sb.WriteString("## Fragility Triggers\n\n")
	sb.WriteString("| # | Trigger | Condition | Actual | Status |\n")
	sb.WriteString("|---|---------|-----------|--------|--------|\n")
	triggered := 0
	for i, c := range result.Triggers {
		statusStr := "NOT TRIGGERED"
		if !c.Pass { // Pass=false means triggered
			statusStr = "TRIGGERED"
			triggered++
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, statusStr))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Triggers: %d/%d triggered\n\n", triggered, len(result.Triggers)))

	sb.WriteString("## Summary\n\n")
	if result.Verdict == VerdictResilient {
		sb.WriteString("All resilience criteria passed and no fragility triggers fired.\n")
	} else {
		sb.WriteString("Network is FRAGILE due to:\n")
		for _, c := range result.Criteria {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- criterion failed: %s (actual: %s)\n", c.Name, c.Actual))
			}
		}
		for _, c := range result.Triggers {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- trigger fired: %s (actual: %s)\n", c.Name, c.Actual))
			}
		}
	}

	return sb.String()
}
