package healer

import (
	"strings"
	"sync"
	"time"
)

// DefaultDedupWindow is how long a fingerprint or (alert-type,
// workflow-family) pair blocks a new remediation from spawning.
const DefaultDedupWindow = 30 * time.Minute

// ExtractWorkflowFamily reduces a pod name to the prefix that identifies
// its owning workflow, so that pods from the same workflow dedup together
// while pods from unrelated workflows do not.
//
// Examples: "play-task-4-abc-step-123" -> "play-task-4";
// "atlas-conflict-monitor-xyz" -> "atlas-conflict-monitor";
// "healer-remediation-task1-a7-abc" -> "healer-remediation";
// "cto-tools-67db5dff7-hn8xh" -> "cto-tools".
func ExtractWorkflowFamily(podName string) string {
	parts := strings.Split(podName, "-")

	switch {
	case strings.HasPrefix(podName, "play-task-") && len(parts) >= 3:
		return strings.Join(parts[:3], "-")
	case strings.HasPrefix(podName, "healer-remediation-") && len(parts) >= 2:
		return strings.Join(parts[:2], "-")
	case strings.HasPrefix(podName, "atlas-") && len(parts) >= 2:
		if len(parts) >= 3 && (parts[1] == "conflict" || parts[1] == "batch") {
			return strings.Join(parts[:3], "-")
		}
		return strings.Join(parts[:2], "-")
	}

	if len(parts) >= 2 {
		return strings.Join(parts[:2], "-")
	}
	return podName
}

// SanitizeLabelValue trims value to a valid Kubernetes label value: at
// most 63 alphanumeric/hyphen/underscore/dot characters, with trailing
// separators stripped.
func SanitizeLabelValue(value string) string {
	var b strings.Builder
	for _, r := range value {
		if b.Len() >= 63 {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), "-._")
}

// trackedRemediation is one active remediation the deduplicator is
// watching for its fingerprint and (alert-type, workflow-family) pair.
type trackedRemediation struct {
	fingerprint string
	alertType   string
	family      string
	startedAt   time.Time
	inFlight    bool
}

// Deduplicator tracks in-flight remediations in-process, keyed by
// fingerprint, so a second failure report for the same underlying
// condition does not spawn a second remediation workload.
type Deduplicator struct {
	mu     sync.RWMutex
	window time.Duration
	active map[string]*trackedRemediation
	now    func() time.Time
}

// NewDeduplicator creates a Deduplicator using DefaultDedupWindow.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		window: DefaultDedupWindow,
		active: make(map[string]*trackedRemediation),
		now:    time.Now,
	}
}

// WithWindow overrides the default dedup window.
func (d *Deduplicator) WithWindow(window time.Duration) *Deduplicator {
	d.window = window
	return d
}

// IsDuplicate reports whether fingerprint is already tracked within the
// dedup window (case a), or whether a tracked remediation shares the same
// alert type and workflow family within the window (case b).
func (d *Deduplicator) IsDuplicate(fingerprint, alertType, podName string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if t, ok := d.active[fingerprint]; ok && d.now().Sub(t.startedAt) < d.window {
		return true
	}

	family := ExtractWorkflowFamily(podName)
	for _, t := range d.active {
		if t.alertType == alertType && t.family == family && d.now().Sub(t.startedAt) < d.window {
			return true
		}
	}
	return false
}

// Track records a newly spawned remediation under fingerprint.
func (d *Deduplicator) Track(fingerprint, alertType, podName string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.active[fingerprint] = &trackedRemediation{
		fingerprint: fingerprint,
		alertType:   alertType,
		family:      ExtractWorkflowFamily(podName),
		startedAt:   d.now(),
		inFlight:    true,
	}
}

// MarkDone stops counting fingerprint toward the active concurrency cap,
// while still leaving it tracked for window-based deduplication.
func (d *Deduplicator) MarkDone(fingerprint string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.active[fingerprint]; ok {
		t.inFlight = false
	}
}

// ActiveCount returns how many tracked remediations are still in flight,
// for enforcement of the per-pipeline concurrency cap.
func (d *Deduplicator) ActiveCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := 0
	for _, t := range d.active {
		if t.inFlight {
			count++
		}
	}
	return count
}
