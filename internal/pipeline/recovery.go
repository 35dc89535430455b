// Copyright 2025 Analemma Bridge
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"strings"

	"github.com/analemma-bridge/governance-core/internal/governance"
)

// recoveryCapability renders §4.9's capability template.
func recoveryCapability(action string, ring string, alternatives []string) string {
	if len(alternatives) > 5 {
		alternatives = alternatives[:5]
	}
	return fmt.Sprintf(
		"Action '%s' is not authorized at %s. Available alternatives: %s. Please revise your plan to use an authorized tool.",
		action, ring, strings.Join(alternatives, ", "),
	)
}

// recoveryInjection renders §4.9's injection template.
func recoveryInjection(action string) string {
	return fmt.Sprintf(
		"Your thought or action ('%s') was flagged as a potential prompt injection attempt. Rephrase using task-focused language.",
		action,
	)
}

// recoveryConstitutionalCritical renders §4.9's constitutional_critical template.
func recoveryConstitutionalCritical(action, details string) string {
	return fmt.Sprintf(
		"Action '%s' violates a critical constitutional policy. Violation: %s. Terminate or redirect this task immediately. Do not retry.",
		action, details,
	)
}

// recoveryConstitutionalMedium renders §4.9's constitutional_medium template.
func recoveryConstitutionalMedium(action, details string) string {
	return fmt.Sprintf(
		"Action '%s' raised a policy warning: %s. Adjust your approach and retry with a modified plan.",
		action, details,
	)
}

// recoveryBudget renders §4.9's budget template.
func recoveryBudget() string {
	return "Token budget exhausted. Use a FINAL segment to summarize and terminate the workflow gracefully."
}

// joinViolations concatenates violation descriptions for embedding into a
// constitutional recovery instruction, per §4.6 Stage 4.
func joinViolations(violations []governance.Violation) string {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, v.Description)
	}
	return strings.Join(parts, "; ")
}
