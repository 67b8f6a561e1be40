// Package remediation turns free-form PR review comments into structured,
// actionable directives and tracks remediation progress per (PR, task).
package remediation

import "time"

// IssueType is the kind of problem a review comment reports.
type IssueType string

const (
	IssueTypeBug            IssueType = "bug"
	IssueTypeMissingFeature IssueType = "missing_feature"
	IssueTypeRegression     IssueType = "regression"
	IssueTypePerformance    IssueType = "performance"
)

// Severity is how urgently a reported issue needs to be fixed.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// CriteriaStatus is one line from the "Acceptance Criteria Not Met"
// checklist.
type CriteriaStatus struct {
	Checked bool
	Text    string
}

// FeedbackMetadata identifies where a piece of structured feedback came
// from.
type FeedbackMetadata struct {
	Author    string `validate:"required"`
	Timestamp time.Time
	CommentID int64 `validate:"required"`
	PRNumber  int   `validate:"required"`
	TaskID    string
}

// StructuredFeedback is a review comment parsed into an actionable
// directive. IssueType, Severity, and Description are required; at least
// one criteria item is required.
type StructuredFeedback struct {
	IssueType         IssueType `validate:"required"`
	Severity          Severity  `validate:"required"`
	Description       string    `validate:"required"`
	CriteriaNotMet    []CriteriaStatus
	ReproductionSteps []string
	ExpectedBehavior  string
	ActualBehavior    string
	Metadata          FeedbackMetadata `validate:"required"`
}

// RemediationStatus is the lifecycle state of a (PR, task) remediation.
type RemediationStatus string

const (
	RemediationNotStarted RemediationStatus = "not_started"
	RemediationInProgress RemediationStatus = "in_progress"
	RemediationSucceeded  RemediationStatus = "succeeded"
	RemediationFailed     RemediationStatus = "failed"
	RemediationCancelled  RemediationStatus = "cancelled"
)

// Outcome records the result of a single remediation iteration.
type Outcome struct {
	Iteration   int
	Status      RemediationStatus
	RecordedAt  time.Time
	Description string
}

// RemediationState is the per-(PR, task) state the label orchestrator and
// dedup logic consult to decide whether remediation is already underway.
// Created on first accepted feedback; terminal once the workflow reaches
// Approved or Failed.
type RemediationState struct {
	PRNumber  int
	TaskID    string
	Status    RemediationStatus
	Iteration int
	Outcomes  []Outcome
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal reports whether s has reached a state from which it will not
// transition further.
func (s *RemediationState) IsTerminal() bool {
	return s.Status == RemediationSucceeded || s.Status == RemediationFailed || s.Status == RemediationCancelled
}
