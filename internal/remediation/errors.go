package remediation

import "fmt"

// NotActionableFeedbackError is returned when a comment lacks the
// actionability sigil.
type NotActionableFeedbackError struct{}

func (e *NotActionableFeedbackError) Error() string { return "comment is not actionable feedback" }

// UnauthorizedAuthorError is returned when the comment's author is not on
// the allowlist and does not match a team prefix.
type UnauthorizedAuthorError struct {
	Author string
}

func (e *UnauthorizedAuthorError) Error() string {
	return fmt.Sprintf("author %q is not authorized to provide feedback", e.Author)
}

// MissingRequiredFieldError is returned when a required grammar field is
// absent from the comment body.
type MissingRequiredFieldError struct {
	Field string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// IssueTypeError is returned when the issue-type field is present but does
// not match a known kind.
type IssueTypeError struct {
	Details string
}

func (e *IssueTypeError) Error() string { return "issue type: " + e.Details }

// SeverityError is returned when the severity field is present but does
// not match a known level.
type SeverityError struct {
	Details string
}

func (e *SeverityError) Error() string { return "severity: " + e.Details }

// DescriptionError is returned when the description section is missing or
// empty.
type DescriptionError struct {
	Details string
}

func (e *DescriptionError) Error() string { return "description: " + e.Details }

// MarkdownParseError is returned when the acceptance-criteria checklist
// cannot be parsed.
type MarkdownParseError struct {
	Details string
}

func (e *MarkdownParseError) Error() string { return "markdown parse: " + e.Details }

// ResourceExhaustedError is returned when a comment exceeds the configured
// size limit.
type ResourceExhaustedError struct {
	Resource string
	Details  string
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("resource exhausted (%s): %s", e.Resource, e.Details)
}
