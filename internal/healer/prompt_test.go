package healer

import (
	"strings"
	"testing"
)

func TestBuildPrompt_IncludesDiagnosisAndLogs(t *testing.T) {
	failure := Failure{
		Source:     SourceCI,
		AlertName:  "RustBuildFailed",
		Severity:   "critical",
		Namespace:  "agentmesh",
		PodName:    "play-task-4-abc",
		Repository: "agentmesh/controller",
		Logs:       "error[E0308]: mismatched types",
	}
	diagnosis := Diagnosis{
		Kind:    FailureRustCompile,
		Summary: "Rust compilation error.",
		Target:  RoutingTarget{Agent: "rex"},
	}

	prompt := BuildPrompt(failure, diagnosis)

	for _, want := range []string{"RustBuildFailed", "REX", "Rust compilation error.", "error[E0308]", "agentmesh/controller"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("BuildPrompt() missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPrompt_TruncatesLongLogs(t *testing.T) {
	failure := Failure{Logs: strings.Repeat("x", maxPromptLogBytes+500)}
	diagnosis := Diagnosis{Kind: FailureUnknown, Summary: "unknown", Target: RoutingTarget{Agent: "bolt"}}

	prompt := BuildPrompt(failure, diagnosis)

	if !strings.Contains(prompt, "(truncated)") {
		t.Error("BuildPrompt() did not truncate an oversized log body")
	}
	if strings.Count(prompt, "x") > maxPromptLogBytes {
		t.Error("BuildPrompt() included more than maxPromptLogBytes of log content")
	}
}
