package workflow

import "fmt"

// OverrideDetector checks for the manual-override label, which suppresses
// every automated transition until a human removes it.
type OverrideDetector struct {
	label string
}

// NewOverrideDetector builds a detector watching the standard override
// label.
func NewOverrideDetector() *OverrideDetector {
	return &OverrideDetector{label: OverrideLabel}
}

// Check reports whether labels carries the override label, and a
// human-readable message naming it when it does.
func (d *OverrideDetector) Check(labels []string) (bool, string) {
	for _, l := range labels {
		if l == d.label {
			return true, fmt.Sprintf("manual override label %q is active; automated transitions are suppressed", d.label)
		}
	}
	return false, ""
}
