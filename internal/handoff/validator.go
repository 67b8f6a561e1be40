package handoff

import (
	"fmt"
	"strings"
)

// ValidationError contains details about validation failures.
type ValidationError struct {
	Phase   Phase
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation error for %s: %s", e.Phase, e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates handoff data for completeness and correctness before
// it is stored, rejecting outputs a phase could not usefully consume.
type Validator struct{}

// NewValidator creates a new handoff validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePhaseOutput validates the output for a given phase.
func (v *Validator) ValidatePhaseOutput(phase Phase, output interface{}) ValidationErrors {
	var errs ValidationErrors

	switch phase {
	case PhasePlan:
		out, ok := output.(*PlanOutput)
		if !ok {
			errs = append(errs, ValidationError{Phase: phase, Field: "type", Message: "expected *PlanOutput"})
			return errs
		}
		errs = append(errs, v.validatePlanOutput(out)...)

	case PhaseImplement:
		out, ok := output.(*ImplementOutput)
		if !ok {
			errs = append(errs, ValidationError{Phase: phase, Field: "type", Message: "expected *ImplementOutput"})
			return errs
		}
		errs = append(errs, v.validateImplementOutput(out)...)

	case PhaseReview:
		out, ok := output.(*ReviewOutput)
		if !ok {
			errs = append(errs, ValidationError{Phase: phase, Field: "type", Message: "expected *ReviewOutput"})
			return errs
		}
		errs = append(errs, v.validateReviewOutput(out)...)

	case PhaseDocs:
		out, ok := output.(*DocsOutput)
		if !ok {
			errs = append(errs, ValidationError{Phase: phase, Field: "type", Message: "expected *DocsOutput"})
			return errs
		}
		errs = append(errs, v.validateDocsOutput(out)...)

	case PhasePRCreation:
		out, ok := output.(*PRCreationOutput)
		if !ok {
			errs = append(errs, ValidationError{Phase: phase, Field: "type", Message: "expected *PRCreationOutput"})
			return errs
		}
		errs = append(errs, v.validatePRCreationOutput(out)...)

	default:
		errs = append(errs, ValidationError{Phase: phase, Field: "phase", Message: "unknown phase"})
	}

	return errs
}

func (v *Validator) validatePlanOutput(out *PlanOutput) ValidationErrors {
	var errs ValidationErrors

	if out == nil {
		errs = append(errs, ValidationError{Phase: PhasePlan, Field: "output", Message: "output is nil"})
		return errs
	}

	if strings.TrimSpace(out.Summary) == "" {
		errs = append(errs, ValidationError{Phase: PhasePlan, Field: "summary", Message: "summary is required"})
	}

	if len(out.ImplementationSteps) == 0 {
		errs = append(errs, ValidationError{Phase: PhasePlan, Field: "implementation_steps", Message: "at least one implementation step is required"})
	}

	for i, step := range out.ImplementationSteps {
		if step.Number <= 0 {
			errs = append(errs, ValidationError{
				Phase:   PhasePlan,
				Field:   fmt.Sprintf("implementation_steps[%d].number", i),
				Message: "step number must be positive",
			})
		}
		if strings.TrimSpace(step.Description) == "" {
			errs = append(errs, ValidationError{
				Phase:   PhasePlan,
				Field:   fmt.Sprintf("implementation_steps[%d].description", i),
				Message: "step description is required",
			})
		}
	}

	if out.Complexity != "" && out.Complexity != "SIMPLE" && out.Complexity != "COMPLEX" {
		errs = append(errs, ValidationError{Phase: PhasePlan, Field: "complexity", Message: "complexity must be SIMPLE or COMPLEX"})
	}

	return errs
}

func (v *Validator) validateImplementOutput(out *ImplementOutput) ValidationErrors {
	var errs ValidationErrors

	if out == nil {
		errs = append(errs, ValidationError{Phase: PhaseImplement, Field: "output", Message: "output is nil"})
		return errs
	}

	if strings.TrimSpace(out.BranchName) == "" {
		errs = append(errs, ValidationError{Phase: PhaseImplement, Field: "branch_name", Message: "branch name is required"})
	}

	for i, commit := range out.Commits {
		if strings.TrimSpace(commit.SHA) == "" {
			errs = append(errs, ValidationError{
				Phase:   PhaseImplement,
				Field:   fmt.Sprintf("commits[%d].sha", i),
				Message: "commit SHA is required",
			})
		}
		if strings.TrimSpace(commit.Message) == "" {
			errs = append(errs, ValidationError{
				Phase:   PhaseImplement,
				Field:   fmt.Sprintf("commits[%d].message", i),
				Message: "commit message is required",
			})
		}
	}

	return errs
}

func (v *Validator) validateReviewOutput(out *ReviewOutput) ValidationErrors {
	var errs ValidationErrors

	if out == nil {
		errs = append(errs, ValidationError{Phase: PhaseReview, Field: "output", Message: "output is nil"})
		return errs
	}

	if out.RegressionNeeded && strings.TrimSpace(out.RegressionReason) == "" {
		errs = append(errs, ValidationError{Phase: PhaseReview, Field: "regression_reason", Message: "regression reason is required when regression is needed"})
	}

	return errs
}

func (v *Validator) validateDocsOutput(out *DocsOutput) ValidationErrors {
	var errs ValidationErrors

	if out == nil {
		errs = append(errs, ValidationError{Phase: PhaseDocs, Field: "output", Message: "output is nil"})
		return errs
	}

	return errs
}

func (v *Validator) validatePRCreationOutput(out *PRCreationOutput) ValidationErrors {
	var errs ValidationErrors

	if out == nil {
		errs = append(errs, ValidationError{Phase: PhasePRCreation, Field: "output", Message: "output is nil"})
		return errs
	}

	if out.PRNumber <= 0 {
		errs = append(errs, ValidationError{Phase: PhasePRCreation, Field: "pr_number", Message: "PR number is required"})
	}

	return errs
}

// ValidatePhaseInput validates that required inputs are present for a phase.
func (v *Validator) ValidatePhaseInput(store *Store, taskID string, phase Phase) ValidationErrors {
	var errs ValidationErrors

	if store.GetIssueContext(taskID) == nil {
		errs = append(errs, ValidationError{Phase: phase, Field: "issue_context", Message: "issue context is required"})
	}

	switch phase {
	case PhasePlan:
		// Only needs issue context

	case PhaseImplement:
		if store.GetPlanOutput(taskID) == nil {
			errs = append(errs, ValidationError{Phase: phase, Field: "plan_output", Message: "plan output is required for IMPLEMENT phase"})
		}

	case PhaseReview, PhaseDocs:
		if store.GetPlanOutput(taskID) == nil {
			errs = append(errs, ValidationError{Phase: phase, Field: "plan_output", Message: "plan output is required for " + string(phase) + " phase"})
		}
		if store.GetImplementOutput(taskID) == nil {
			errs = append(errs, ValidationError{Phase: phase, Field: "implement_output", Message: "implement output is required for " + string(phase) + " phase"})
		}

	case PhasePRCreation:
		if store.GetImplementOutput(taskID) == nil {
			errs = append(errs, ValidationError{Phase: phase, Field: "implement_output", Message: "implement output is required for PR_CREATION phase"})
		}
	}

	return errs
}

// ValidationResult is the outcome of a lightweight, standalone validation
// check, as opposed to Validator's stricter phase-gating checks. Issues that
// would merely produce a lower-quality result (no files listed, tests not
// run, missing PR URL) are reported as warnings rather than errors so the
// pipeline is not blocked on cosmetic incompleteness.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []string
}

// ValidatePlanOutput performs a minimal sanity check of a PLAN output,
// requiring only a non-empty summary.
func ValidatePlanOutput(out *PlanOutput) *ValidationResult {
	if out == nil {
		return &ValidationResult{Errors: []ValidationError{{Phase: PhasePlan, Field: "output", Message: "output is nil"}}}
	}

	result := &ValidationResult{Valid: true}

	if strings.TrimSpace(out.Summary) == "" {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{Phase: PhasePlan, Field: "summary", Message: "summary is required"})
	}
	if len(out.FilesToModify) == 0 && len(out.FilesToCreate) == 0 {
		result.Warnings = append(result.Warnings, "no files listed to modify or create")
	}
	if len(out.ImplementationSteps) == 0 {
		result.Warnings = append(result.Warnings, "no implementation steps listed")
	}

	return result
}

// ValidateImplementOutput performs a minimal sanity check of an IMPLEMENT
// output, requiring only a non-empty branch name.
func ValidateImplementOutput(out *ImplementOutput) *ValidationResult {
	if out == nil {
		return &ValidationResult{Errors: []ValidationError{{Phase: PhaseImplement, Field: "output", Message: "output is nil"}}}
	}

	result := &ValidationResult{Valid: true}

	if strings.TrimSpace(out.BranchName) == "" {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{Phase: PhaseImplement, Field: "branch_name", Message: "branch name is required"})
	}
	if len(out.FilesChanged) == 0 {
		result.Warnings = append(result.Warnings, "no files changed")
	}
	if !out.TestsPassed {
		result.Warnings = append(result.Warnings, "tests did not pass or were not run")
	}

	return result
}

// ValidateReviewOutput performs a minimal sanity check of a REVIEW output.
func ValidateReviewOutput(out *ReviewOutput) *ValidationResult {
	if out == nil {
		return &ValidationResult{Errors: []ValidationError{{Phase: PhaseReview, Field: "output", Message: "output is nil"}}}
	}

	result := &ValidationResult{Valid: true}

	if out.RegressionNeeded && strings.TrimSpace(out.RegressionReason) == "" {
		result.Warnings = append(result.Warnings, "regression needed but no reason given")
	}

	return result
}

// ValidatePRCreationOutput performs a minimal sanity check of a PR_CREATION
// output, requiring only a positive PR number.
func ValidatePRCreationOutput(out *PRCreationOutput) *ValidationResult {
	if out == nil {
		return &ValidationResult{Errors: []ValidationError{{Phase: PhasePRCreation, Field: "output", Message: "output is nil"}}}
	}

	result := &ValidationResult{Valid: true}

	if out.PRNumber <= 0 {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{Phase: PhasePRCreation, Field: "pr_number", Message: "PR number is required"})
	}
	if out.PRUrl == "" {
		result.Warnings = append(result.Warnings, "no PR URL given")
	}

	return result
}

// phaseAdvanceRequirements lists, for each phase, the prior output that must
// already be stored before a task can advance into it.
var phaseAdvanceRequirements = map[string]Phase{
	"IMPLEMENT":   PhasePlan,
	"REVIEW":      PhaseImplement,
	"DOCS":        PhaseImplement,
	"PR_CREATION": PhaseImplement,
}

// CanAdvanceToPhase reports whether taskID has the data a phase needs to
// begin, and a human-readable reason when it does not.
func CanAdvanceToPhase(store *Store, taskID string, phase string) (bool, string) {
	if store.GetIssueContext(taskID) == nil {
		return false, "issue context is required"
	}

	if phase == "PLAN" {
		return true, ""
	}

	required, ok := phaseAdvanceRequirements[phase]
	if !ok {
		return false, fmt.Sprintf("unknown phase: %s", phase)
	}

	if !store.HasPhaseOutput(taskID, required) {
		return false, fmt.Sprintf("%s output is required before advancing to %s", required, phase)
	}

	return true, ""
}
