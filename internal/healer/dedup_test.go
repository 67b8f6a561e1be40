package healer

import (
	"testing"
	"time"
)

func TestExtractWorkflowFamily(t *testing.T) {
	cases := map[string]string{
		"play-task-4-abc-step-123":                   "play-task-4",
		"play-task-4-xyz-determine-resume-point-456": "play-task-4",
		"play-task-1-jqc6d":                           "play-task-1",
		"atlas-conflict-monitor-xyz":                  "atlas-conflict-monitor",
		"atlas-batch-integration-abc":                 "atlas-batch-integration",
		"atlas-guardian-tcf6d":                        "atlas-guardian",
		"healer-remediation-task1-a7-abc":             "healer-remediation",
		"cto-tools-67db5dff7-hn8xh":                   "cto-tools",
	}
	for pod, want := range cases {
		if got := ExtractWorkflowFamily(pod); got != want {
			t.Errorf("ExtractWorkflowFamily(%q) = %q, want %q", pod, got, want)
		}
	}
}

func TestSanitizeLabelValue(t *testing.T) {
	cases := map[string]string{
		"simple-pod":      "simple-pod",
		"pod-name---":     "pod-name",
		"pod@with#special": "podwithspecial",
	}
	for in, want := range cases {
		if got := SanitizeLabelValue(in); got != want {
			t.Errorf("SanitizeLabelValue(%q) = %q, want %q", in, got, want)
		}
	}
	long := "pod-with-very-long-name-that-exceeds-kubernetes-label-limits-definitely"
	if got := SanitizeLabelValue(long); len(got) > 63 {
		t.Errorf("SanitizeLabelValue(long) length = %d, want <= 63", len(got))
	}
}

func TestDeduplicator_FingerprintWindow(t *testing.T) {
	now := time.Now()
	d := NewDeduplicator().WithWindow(30 * time.Minute)
	d.now = func() time.Time { return now }

	d.Track("fp-1", "RustCompileFailed", "play-task-4-abc")

	if !d.IsDuplicate("fp-1", "RustCompileFailed", "play-task-4-abc") {
		t.Error("IsDuplicate() = false, want true for a tracked fingerprint within the window")
	}

	d.now = func() time.Time { return now.Add(31 * time.Minute) }
	if d.IsDuplicate("fp-1", "RustCompileFailed", "play-task-4-abc") {
		t.Error("IsDuplicate() = true, want false once the window has elapsed")
	}
}

func TestDeduplicator_WorkflowFamilyWindow(t *testing.T) {
	now := time.Now()
	d := NewDeduplicator()
	d.now = func() time.Time { return now }

	d.Track("fp-1", "RustCompileFailed", "play-task-4-abc-step-1")

	if !d.IsDuplicate("fp-2", "RustCompileFailed", "play-task-4-xyz-step-2") {
		t.Error("IsDuplicate() = false, want true for a second pod in the same workflow family")
	}
	if d.IsDuplicate("fp-3", "RustCompileFailed", "atlas-conflict-monitor-xyz") {
		t.Error("IsDuplicate() = true, want false for a different workflow family")
	}
}

func TestDeduplicator_ActiveCountTracksInFlightOnly(t *testing.T) {
	d := NewDeduplicator()
	d.Track("fp-1", "A", "play-task-1-a")
	d.Track("fp-2", "A", "play-task-2-a")

	if got := d.ActiveCount(); got != 2 {
		t.Fatalf("ActiveCount() = %d, want 2", got)
	}

	d.MarkDone("fp-1")
	if got := d.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount() after MarkDone = %d, want 1", got)
	}
}
