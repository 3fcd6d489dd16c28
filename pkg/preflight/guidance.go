package preflight

import (
	"fmt"
	"strings"
)

// FormatCheckError formats a failed check result with actionable guidance.
func FormatCheckError(check CheckResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("  %s: %s\n", check.Check, check.Message))
	sb.WriteString(fmt.Sprintf("    %s\n", getGuidance(check.Check)))

	return sb.String()
}

// FormatResults formats all preflight results for display.
func FormatResults(results *Results) string {
	var sb strings.Builder

	if results.Passed {
		sb.WriteString("Preflight checks passed\n")
	} else {
		sb.WriteString("Preflight checks failed\n\n")
		sb.WriteString("Failed checks:\n")
		for i := range results.Checks {
			if !results.Checks[i].Passed {
				sb.WriteString(FormatCheckError(results.Checks[i]))
				sb.WriteString("\n")
			}
		}
		sb.WriteString("Passed checks:\n")
	}

	for i := range results.Checks {
		if results.Checks[i].Passed {
			sb.WriteString(fmt.Sprintf("  [PASS] %s: %s\n", results.Checks[i].Check, results.Checks[i].Message))
		}
	}

	return sb.String()
}

// getGuidance returns actionable guidance for fixing a failed check.
func getGuidance(check Check) string {
	switch check {
	case CheckCleanTree:
		return "Commit or stash your changes before releasing."
	case CheckTools:
		return "Install python, virtualenv and twine, or point rtool.yaml at them."
	case CheckVersionFile:
		return "Check version_file in rtool.yaml; it must contain IVERSION = (x, y, z)."
	default:
		return "Unknown check."
	}
}
