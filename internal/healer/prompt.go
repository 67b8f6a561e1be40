package healer

import (
	"fmt"
	"strings"
)

// maxPromptLogBytes is the log body truncation limit spec'd for the
// remediation prompt.
const maxPromptLogBytes = 10 * 1024

// BuildPrompt renders the prompt handed to the specialist agent: a
// failure summary, the classifier's diagnosis, and a truncated log body.
func BuildPrompt(failure Failure, diagnosis Diagnosis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Remediation: %s\n\n", capitalize(string(failure.Source)), failureTitle(failure))
	fmt.Fprintf(&b, "You are %s, a specialist agent. A %s failure needs remediation.\n\n", strings.ToUpper(diagnosis.Target.Agent), failure.Source)

	b.WriteString("## Failure Details\n\n")
	if failure.AlertName != "" {
		fmt.Fprintf(&b, "- **Alert**: %s\n", failure.AlertName)
	}
	if failure.WorkflowName != "" {
		fmt.Fprintf(&b, "- **Workflow**: %s\n", failure.WorkflowName)
	}
	fmt.Fprintf(&b, "- **Severity**: %s\n", failure.Severity)
	fmt.Fprintf(&b, "- **Namespace**: %s\n", failure.Namespace)
	if failure.PodName != "" {
		fmt.Fprintf(&b, "- **Pod**: %s\n", failure.PodName)
	}
	if failure.Repository != "" {
		fmt.Fprintf(&b, "- **Repository**: %s\n", failure.Repository)
	}

	fmt.Fprintf(&b, "\n## Diagnosis\n\n%s\n", diagnosis.Summary)

	b.WriteString("\n## Logs\n\n```\n")
	b.WriteString(truncateLogs(failure.Logs))
	b.WriteString("```\n\n")

	b.WriteString("## Your Task\n\n")
	b.WriteString("1. Analyze the failure and diagnosis\n")
	b.WriteString("2. Identify the root cause\n")
	b.WriteString("3. Implement a fix\n")
	b.WriteString("4. Ensure tests pass\n")
	b.WriteString("5. Open a pull request with the fix\n")

	return b.String()
}

func failureTitle(failure Failure) string {
	if failure.AlertName != "" {
		return failure.AlertName
	}
	if failure.WorkflowName != "" {
		return failure.WorkflowName
	}
	return failure.Fingerprint
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncateLogs(logs string) string {
	if len(logs) <= maxPromptLogBytes {
		return logs
	}
	return logs[:maxPromptLogBytes] + "\n... (truncated)\n"
}
