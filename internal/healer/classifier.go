package healer

import "strings"

// Classify scans log content and an alert name for known failure patterns.
// Log content is checked first since it carries the most specific
// evidence; the alert name is a fallback for alerts with no useful log
// body (e.g. a stuck or pending workflow).
func Classify(logs, alertName string) (FailureKind, string) {
	lower := strings.ToLower(logs)

	switch {
	case strings.Contains(lower, "error[e") || strings.Contains(lower, "cargo build"):
		return FailureRustCompile, "Rust compilation error. Check for missing imports, type errors, or borrow checker issues."
	case strings.Contains(lower, "clippy"):
		return FailureClippy, "Clippy lint errors. The agent needs to fix code style issues."
	case strings.Contains(lower, "test result: failed") || strings.Contains(lower, "test failed"):
		return FailureTest, "Test failures. Check test output for specific failures."
	case strings.Contains(lower, "git") && (strings.Contains(lower, "conflict") || strings.Contains(lower, "merge")):
		return FailureGitMerge, "Git merge conflict. The agent needs to resolve conflicting changes."
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return FailureTimeout, "Operation timed out. This may indicate a stuck agent or a slow external service."
	case strings.Contains(lower, "oom") || strings.Contains(lower, "out of memory"):
		return FailureOOM, "Out of memory. Consider increasing resource limits for the workload."
	case strings.Contains(lower, "permission denied") || strings.Contains(lower, "unauthorized"):
		return FailurePermissions, "Permission or authentication error. Check credentials and RBAC."
	case strings.Contains(lower, "docker") && strings.Contains(lower, "error"):
		return FailureDocker, "Docker build error. Check the Dockerfile and build context."
	}

	switch alertName {
	case "ArgoWorkflowStepStuck":
		return FailureTimeout, "Workflow step is stuck. The agent may be unresponsive or waiting for external input."
	case "ArgoWorkflowPendingTooLong":
		return FailureOOM, "Workflow pod cannot be scheduled. Check resource availability and image pull status."
	case "ArgoWorkflowHighFailureRate":
		return FailureUnknown, "High workflow failure rate detected. This indicates a systemic issue requiring investigation."
	}

	return FailureUnknown, "Unknown failure. Review logs for specific error messages."
}
