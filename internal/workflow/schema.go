// Package workflow implements the label-driven PR state machine: which
// workflow state a PR is in is derived entirely from its current GitHub
// labels, and every state change is expressed as a batch of label
// operations applied atomically.
package workflow

// WorkflowState is a node in the remediation state machine. Exactly one
// status label maps to each non-Initial state; a PR carrying none of them
// is Initial.
type WorkflowState string

const (
	StateInitial          WorkflowState = "initial"
	StateNeedsFixes       WorkflowState = "needs_fixes"
	StateFixingInProgress WorkflowState = "fixing_in_progress"
	StateNeedsCleo        WorkflowState = "needs_cleo"
	StateNeedsTess        WorkflowState = "needs_tess"
	StateApproved         WorkflowState = "approved"
	StateFailed           WorkflowState = "failed"
	StateManualOverride   WorkflowState = "manual_override"
)

// OverrideLabel suppresses all automated transitions while present.
const OverrideLabel = "manual-override"

// statusLabels maps each non-Initial, non-override state to its label.
var statusLabels = map[WorkflowState]string{
	StateNeedsFixes:       "needs-fixes",
	StateFixingInProgress: "fixing-in-progress",
	StateNeedsCleo:        "needs-cleo",
	StateNeedsTess:        "needs-tess",
	StateApproved:         "approved",
	StateFailed:           "failed-remediation",
}

// labelToState is the inverse of statusLabels, built once at package init.
var labelToState = func() map[string]WorkflowState {
	m := make(map[string]WorkflowState, len(statusLabels))
	for state, label := range statusLabels {
		m[label] = state
	}
	return m
}()

// AllStatusLabels lists every status label, used to clear a PR's status
// before forcing a new one.
func AllStatusLabels() []string {
	labels := make([]string, 0, len(statusLabels))
	for _, l := range statusLabels {
		labels = append(labels, l)
	}
	return labels
}

// StateTransition is one row of the static transition table.
type StateTransition struct {
	From       WorkflowState
	To         WorkflowState
	Trigger    string
	Conditions []string
	Actions    []string
}

// LabelSchema holds the transition table and the state/label mapping used
// to interpret and mutate a PR's labels.
type LabelSchema struct {
	Transitions []StateTransition
}

// DefaultLabelSchema is the standard remediation workflow: a task starts
// Initial, QA review can kick it to NeedsFixes, an agent claims it
// (FixingInProgress), pushes a fix back to NeedsFixes or escalates through
// NeedsCleo/NeedsTess review, and it eventually lands on Approved or
// Failed.
func DefaultLabelSchema() LabelSchema {
	return LabelSchema{
		Transitions: []StateTransition{
			{From: StateInitial, To: StateNeedsFixes, Trigger: "qa_failed",
				Actions: []string{"add_needs_fixes"}},
			{From: StateNeedsFixes, To: StateFixingInProgress, Trigger: "fix_claimed",
				Actions: []string{"remove_needs_fixes", "add_fixing_in_progress"}},
			{From: StateFixingInProgress, To: StateNeedsCleo, Trigger: "fix_pushed",
				Actions: []string{"remove_fixing_in_progress", "add_needs_cleo", "increment_iteration"}},
			{From: StateNeedsCleo, To: StateNeedsFixes, Trigger: "cleo_failed",
				Actions: []string{"remove_needs_cleo", "add_needs_fixes"}},
			{From: StateNeedsCleo, To: StateNeedsTess, Trigger: "cleo_ok",
				Actions: []string{"remove_needs_cleo", "add_needs_tess"}},
			{From: StateNeedsTess, To: StateNeedsFixes, Trigger: "tests_failed",
				Actions: []string{"remove_needs_tess", "add_needs_fixes"}},
			{From: StateNeedsTess, To: StateApproved, Trigger: "tests_passed",
				Actions: []string{"remove_needs_tess", "add_approved"}},
			{From: StateFixingInProgress, To: StateFailed, Trigger: "iteration_limit_reached",
				Conditions: []string{"iteration >= 5"},
				Actions:    []string{"remove_fixing_in_progress", "add_failed_remediation"}},
		},
	}
}

// DetermineWorkflowState reports the state implied by the given labels. By
// invariant at most one status label is present; if more than one is
// found, the first match in iteration order wins (a schema/data
// inconsistency the orchestrator does not attempt to repair).
func (s LabelSchema) DetermineWorkflowState(labels []string) WorkflowState {
	for _, l := range labels {
		if state, ok := labelToState[l]; ok {
			return state
		}
	}
	return StateInitial
}

// FindTransition returns the unique transition leaving from with the given
// trigger, or false if none matches.
func (s LabelSchema) FindTransition(from WorkflowState, trigger string) (StateTransition, bool) {
	for _, t := range s.Transitions {
		if t.From == from && t.Trigger == trigger {
			return t, true
		}
	}
	return StateTransition{}, false
}

// GetTransition returns the transition matching from, to, and trigger
// exactly, or false if none matches.
func (s LabelSchema) GetTransition(from, to WorkflowState, trigger string) (StateTransition, bool) {
	for _, t := range s.Transitions {
		if t.From == from && t.To == to && t.Trigger == trigger {
			return t, true
		}
	}
	return StateTransition{}, false
}

// IsValidTransition reports whether a transition exists for from/to/trigger.
func (s LabelSchema) IsValidTransition(from, to WorkflowState, trigger string) bool {
	_, ok := s.GetTransition(from, to, trigger)
	return ok
}

// TargetLabel returns the status label for state, or false for Initial and
// ManualOverride which carry no status label of their own.
func TargetLabel(state WorkflowState) (string, bool) {
	l, ok := statusLabels[state]
	return l, ok
}
