package workflow

import (
	"context"
	"regexp"
	"strconv"
	"sync"

	"github.com/agentmesh/controller/internal/githubapi"
	"github.com/agentmesh/controller/internal/metrics"
)

var iterationConditionPattern = regexp.MustCompile(`iteration\s*(>=|<=|==|!=|>|<)\s*(\d+)`)

// IterationSource reports the current remediation iteration for a
// (PR, task) pair, backing iteration-threshold transition conditions.
type IterationSource interface {
	CurrentIteration(prNumber int, taskID string) int
}

// IterationIncrementer advances the remediation iteration counter when a
// transition's actions include "increment_iteration". Optional: an
// orchestrator with no incrementer treats that action as a no-op.
type IterationIncrementer interface {
	IncrementIteration(prNumber int, taskID string) int
}

// PackagePrefixSource resolves a monorepo task's package path, so its
// status labels can be scoped ("pkg:core:needs-fixes") instead of
// colliding with every other package's status on a shared label set.
// Optional: an orchestrator with no source treats every task as
// single-package and uses unscoped labels.
type PackagePrefixSource interface {
	PackagePrefix(taskID string) string
}

// LabelOrchestrator drives PR workflow transitions by reading and
// atomically rewriting GitHub labels. It holds no state of its own beyond
// the static transition table; current state is always re-derived from
// the labels read in the current call.
type LabelOrchestrator struct {
	client      *githubapi.LabelClient
	schemaMu    sync.RWMutex
	schema      LabelSchema
	overrides   *OverrideDetector
	iterations  IterationSource
	incrementer IterationIncrementer
	prefixes    PackagePrefixSource
}

// WithPackagePrefixSource enables monorepo package-scoped status labels.
func (o *LabelOrchestrator) WithPackagePrefixSource(prefixes PackagePrefixSource) *LabelOrchestrator {
	o.prefixes = prefixes
	return o
}

// NewLabelOrchestrator builds an orchestrator over the default transition
// table. iterations may be nil if no transition in the active schema
// declares iteration conditions; incrementer may be nil if none declare
// "increment_iteration".
func NewLabelOrchestrator(client *githubapi.LabelClient, iterations IterationSource, incrementer IterationIncrementer) *LabelOrchestrator {
	return &LabelOrchestrator{
		client:      client,
		schema:      DefaultLabelSchema(),
		overrides:   NewOverrideDetector(),
		iterations:  iterations,
		incrementer: incrementer,
	}
}

// WithSchema overrides the transition table, e.g. with one loaded from
// configuration.
func (o *LabelOrchestrator) WithSchema(schema LabelSchema) *LabelOrchestrator {
	o.SetSchema(schema)
	return o
}

// SetSchema atomically replaces the transition table in use, safe to call
// concurrently with TransitionState/GetCurrentState/ValidateTransition. A
// SchemaWatcher calls this on every transitions.yaml change.
func (o *LabelOrchestrator) SetSchema(schema LabelSchema) {
	o.schemaMu.Lock()
	defer o.schemaMu.Unlock()
	o.schema = schema
}

func (o *LabelOrchestrator) currentSchema() LabelSchema {
	o.schemaMu.RLock()
	defer o.schemaMu.RUnlock()
	return o.schema
}

// TransitionState fetches the PR's current labels, finds the unique
// transition for (current state, trigger), validates its conditions, and
// atomically applies its label actions. An active override label aborts
// before any mutation.
func (o *LabelOrchestrator) TransitionState(ctx context.Context, prNumber int, taskID, trigger string) error {
	if err := o.transitionState(ctx, prNumber, taskID, trigger); err != nil {
		metrics.WorkflowTransitions.WithLabelValues(trigger, "error").Inc()
		return err
	}
	metrics.WorkflowTransitions.WithLabelValues(trigger, "ok").Inc()
	return nil
}

func (o *LabelOrchestrator) transitionState(ctx context.Context, prNumber int, taskID, trigger string) error {
	labels, err := o.client.GetLabels(ctx, prNumber)
	if err != nil {
		return err
	}

	if hasOverride, msg := o.overrides.Check(labels); hasOverride {
		return &OverrideDetectedError{Message: msg}
	}

	schema := o.currentSchema()
	current := schema.DetermineWorkflowState(labels)

	transition, ok := schema.FindTransition(current, trigger)
	if !ok {
		return &InvalidTransitionError{From: current, Trigger: trigger}
	}

	if err := o.validateConditions(transition, prNumber, taskID); err != nil {
		return err
	}

	operations := o.actionsToOperations(transition.Actions, prNumber, taskID)
	if len(operations) == 0 {
		return nil
	}
	return o.client.UpdateLabelsAtomic(ctx, prNumber, operations)
}

// GetCurrentState reports the workflow state implied by the PR's current
// labels.
func (o *LabelOrchestrator) GetCurrentState(ctx context.Context, prNumber int) (WorkflowState, error) {
	labels, err := o.client.GetLabels(ctx, prNumber)
	if err != nil {
		return "", err
	}
	return o.currentSchema().DetermineWorkflowState(labels), nil
}

// ValidateTransition reports whether a transition_state call with the same
// arguments would succeed, without mutating anything.
func (o *LabelOrchestrator) ValidateTransition(ctx context.Context, prNumber int, taskID string, from, to WorkflowState, trigger string) (bool, error) {
	labels, err := o.client.GetLabels(ctx, prNumber)
	if err != nil {
		return false, err
	}
	if hasOverride, _ := o.overrides.Check(labels); hasOverride {
		return false, nil
	}
	transition, ok := o.currentSchema().GetTransition(from, to, trigger)
	if !ok {
		return false, nil
	}
	if err := o.validateConditions(transition, prNumber, taskID); err != nil {
		return false, err
	}
	return true, nil
}

// ForceState removes every status label and applies the single label for
// target, bypassing the transition table entirely. Reserved for manual
// recovery; never called by TransitionState.
func (o *LabelOrchestrator) ForceState(ctx context.Context, prNumber int, target WorkflowState) error {
	labels, err := o.client.GetLabels(ctx, prNumber)
	if err != nil {
		return err
	}

	operations := calculateForceOperations(labels, target)
	if len(operations) == 0 {
		return nil
	}
	return o.client.UpdateLabelsAtomic(ctx, prNumber, operations)
}

func (o *LabelOrchestrator) validateConditions(transition StateTransition, prNumber int, taskID string) error {
	for _, condition := range transition.Conditions {
		ok, err := o.evaluateCondition(condition, prNumber, taskID)
		if err != nil {
			return err
		}
		if !ok {
			return &ConditionError{Details: "condition '" + condition + "' not satisfied for task " + taskID}
		}
	}
	return nil
}

func (o *LabelOrchestrator) evaluateCondition(condition string, prNumber int, taskID string) (bool, error) {
	m := iterationConditionPattern.FindStringSubmatch(condition)
	if m == nil {
		return false, &ConditionError{Details: "unrecognised condition: " + condition}
	}

	threshold, err := strconv.Atoi(m[2])
	if err != nil {
		return false, &ConditionError{Details: "invalid iteration value in condition: " + condition}
	}

	current := 0
	if o.iterations != nil {
		current = o.iterations.CurrentIteration(prNumber, taskID)
	}

	switch m[1] {
	case ">=":
		return current >= threshold, nil
	case "<=":
		return current <= threshold, nil
	case "==":
		return current == threshold, nil
	case "!=":
		return current != threshold, nil
	case ">":
		return current > threshold, nil
	case "<":
		return current < threshold, nil
	default:
		return false, &ConditionError{Details: "unsupported operator in condition: " + condition}
	}
}

// actionsToOperations translates a transition's action names into label
// operations, per the static mapping established by the workflow schema.
// "increment_iteration" has no label effect; it drives the optional
// IterationIncrementer instead.
func (o *LabelOrchestrator) actionsToOperations(actions []string, prNumber int, taskID string) []githubapi.LabelOperation {
	var operations []githubapi.LabelOperation

	prefix := ""
	if o.prefixes != nil {
		prefix = o.prefixes.PackagePrefix(taskID)
	}

	add := func(label string) {
		operations = append(operations, githubapi.LabelOperation{Type: githubapi.OpAdd, Labels: []string{PackageLabel(prefix, label)}})
	}
	remove := func(label string) {
		operations = append(operations, githubapi.LabelOperation{Type: githubapi.OpRemove, Labels: []string{PackageLabel(prefix, label)}})
	}

	for _, action := range actions {
		switch action {
		case "add_needs_fixes":
			add(statusLabels[StateNeedsFixes])
		case "remove_needs_fixes":
			remove(statusLabels[StateNeedsFixes])
		case "add_fixing_in_progress":
			add(statusLabels[StateFixingInProgress])
		case "remove_fixing_in_progress":
			remove(statusLabels[StateFixingInProgress])
		case "add_needs_cleo":
			add(statusLabels[StateNeedsCleo])
		case "remove_needs_cleo":
			remove(statusLabels[StateNeedsCleo])
		case "add_needs_tess":
			add(statusLabels[StateNeedsTess])
		case "remove_needs_tess":
			remove(statusLabels[StateNeedsTess])
		case "add_approved":
			add(statusLabels[StateApproved])
		case "add_failed_remediation":
			add(statusLabels[StateFailed])
		case "increment_iteration":
			if o.incrementer != nil {
				o.incrementer.IncrementIteration(prNumber, taskID)
			}
		}
	}
	return operations
}

// calculateForceOperations builds the operation batch for ForceState:
// remove every status label currently present, then add target's label
// (Initial and ManualOverride carry none).
func calculateForceOperations(current []string, target WorkflowState) []githubapi.LabelOperation {
	var operations []githubapi.LabelOperation

	statusSet := make(map[string]struct{}, len(statusLabels))
	for _, l := range statusLabels {
		statusSet[l] = struct{}{}
	}

	var toRemove []string
	for _, l := range current {
		if _, ok := statusSet[l]; ok {
			toRemove = append(toRemove, l)
		}
	}
	if len(toRemove) > 0 {
		operations = append(operations, githubapi.LabelOperation{Type: githubapi.OpRemove, Labels: toRemove})
	}

	if label, ok := TargetLabel(target); ok {
		operations = append(operations, githubapi.LabelOperation{Type: githubapi.OpAdd, Labels: []string{label}})
	}

	return operations
}
