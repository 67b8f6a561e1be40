package remediation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/agentmesh/controller/internal/validate"
)

// DefaultMaxCommentSize is the maximum comment body size the parser will
// process, matching the original implementation's 10MB ceiling.
const DefaultMaxCommentSize = 10 * 1024 * 1024

var (
	actionableSigilPattern = regexp.MustCompile(`(?i)Required Changes`)
	issueTypePattern       = regexp.MustCompile(`(?i)\*\*Issue Type\*\*:\s*\[([^\]]+)\]`)
	severityPattern        = regexp.MustCompile(`(?i)\*\*Severity\*\*:\s*\[([^\]]+)\]`)
	descriptionPattern     = regexp.MustCompile(`(?is)### Description\s*\n(.*?)(?:\n###|\z)`)
	criteriaSectionPattern = regexp.MustCompile(`(?is)### Acceptance Criteria Not Met\s*\n(.*?)(?:\n###|\z)`)
	criteriaLinePattern    = regexp.MustCompile(`(?m)^\s*-\s*\[([ xX])\]\s*(.+)$`)
	reproSectionPattern    = regexp.MustCompile(`(?is)### Steps to Reproduce\s*\n(.*?)(?:\n###|\z)`)
	reproLinePattern       = regexp.MustCompile(`(?m)^\s*(?:\d+\.|-)\s*(.+)$`)
	expectedActualSection  = regexp.MustCompile(`(?is)### Expected vs Actual\s*\n(.*?)(?:\n###|\z)`)
	expectedLinePattern    = regexp.MustCompile(`(?im)^\s*-\s*\*\*Expected\*\*:\s*(.+)$`)
	actualLinePattern      = regexp.MustCompile(`(?im)^\s*-\s*\*\*Actual\*\*:\s*(.+)$`)
)

var issueTypeNames = map[string]IssueType{
	"bug":             IssueTypeBug,
	"missing feature": IssueTypeMissingFeature,
	"missing_feature": IssueTypeMissingFeature,
	"regression":      IssueTypeRegression,
	"performance":     IssueTypePerformance,
}

var severityNames = map[string]Severity{
	"critical": SeverityCritical,
	"high":     SeverityHigh,
	"medium":   SeverityMedium,
	"low":      SeverityLow,
}

// Parser converts review-comment bodies into StructuredFeedback, subject
// to author authorization and a size ceiling. Pure aside from the author
// cache: given the same comment and author state, ParseComment always
// returns the same result.
type Parser struct {
	validator      *AuthorValidator
	maxCommentSize int
}

// NewParser creates a parser with the default author validator and size
// ceiling.
func NewParser() *Parser {
	return &Parser{
		validator:      NewAuthorValidator(),
		maxCommentSize: DefaultMaxCommentSize,
	}
}

// NewParserWithValidator creates a parser using a caller-supplied author
// validator, keeping the default size ceiling.
func NewParserWithValidator(v *AuthorValidator) *Parser {
	return &Parser{validator: v, maxCommentSize: DefaultMaxCommentSize}
}

// SetMaxCommentSize overrides the size ceiling.
func (p *Parser) SetMaxCommentSize(size int) { p.maxCommentSize = size }

// AuthorValidator returns the validator backing this parser, for runtime
// allowlist configuration.
func (p *Parser) AuthorValidator() *AuthorValidator { return p.validator }

// ParseComment runs the full seven-step extraction pipeline: size check,
// actionable-marker check, author authorization, required-field
// extraction, criteria checkboxes, then optional sections. The first
// failing step aborts with its corresponding error.
func (p *Parser) ParseComment(body, author string, commentID int64, prNumber int, taskID string) (*StructuredFeedback, error) {
	if len(body) > p.maxCommentSize {
		return nil, &ResourceExhaustedError{
			Resource: "comment_size",
			Details:  "comment size " + strconv.Itoa(len(body)) + " exceeds maximum " + strconv.Itoa(p.maxCommentSize),
		}
	}

	if !isActionableFeedback(body) {
		return nil, &NotActionableFeedbackError{}
	}

	if err := p.validator.ValidateAuthor(author); err != nil {
		return nil, &UnauthorizedAuthorError{Author: author}
	}

	issueType, err := extractIssueType(body)
	if err != nil {
		return nil, err
	}

	severity, err := extractSeverity(body)
	if err != nil {
		return nil, err
	}

	description, err := extractDescription(body)
	if err != nil {
		return nil, err
	}

	criteria, err := extractCriteria(body)
	if err != nil {
		return nil, err
	}

	reproSteps := extractReproductionSteps(body)
	expected, actual := extractExpectedActual(body)

	feedback := &StructuredFeedback{
		IssueType:         issueType,
		Severity:          severity,
		Description:       description,
		CriteriaNotMet:    criteria,
		ReproductionSteps: reproSteps,
		ExpectedBehavior:  expected,
		ActualBehavior:    actual,
		Metadata: FeedbackMetadata{
			Author:    author,
			CommentID: commentID,
			PRNumber:  prNumber,
			TaskID:    taskID,
		},
	}

	if err := validateFeedback(feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

// validateFeedback runs a struct-tag validation pass over the assembled
// feedback as a final defense alongside the targeted extractors above,
// catching anything a future extractor change might let slip through.
func validateFeedback(feedback *StructuredFeedback) error {
	err := validate.Struct(feedback)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &MissingRequiredFieldError{Field: verrs[0].StructField()}
	}
	return err
}

// ValidateComment runs the cheap checks (size, actionability, author,
// presence of required fields) without extracting full structured content.
func (p *Parser) ValidateComment(body, author string) error {
	if len(body) > p.maxCommentSize {
		return &ResourceExhaustedError{Resource: "comment_size", Details: "comment exceeds maximum size"}
	}
	if !isActionableFeedback(body) {
		return &NotActionableFeedbackError{}
	}
	if err := p.validator.ValidateAuthor(author); err != nil {
		return &UnauthorizedAuthorError{Author: author}
	}
	if !issueTypePattern.MatchString(body) {
		return &MissingRequiredFieldError{Field: "issue_type"}
	}
	if !severityPattern.MatchString(body) {
		return &MissingRequiredFieldError{Field: "severity"}
	}
	if !descriptionPattern.MatchString(body) {
		return &MissingRequiredFieldError{Field: "description"}
	}
	return nil
}

func isActionableFeedback(body string) bool {
	return actionableSigilPattern.MatchString(body)
}

func extractIssueType(body string) (IssueType, error) {
	m := issueTypePattern.FindStringSubmatch(body)
	if m == nil {
		return "", &MissingRequiredFieldError{Field: "issue_type"}
	}
	kind, ok := issueTypeNames[strings.ToLower(strings.TrimSpace(m[1]))]
	if !ok {
		return "", &IssueTypeError{Details: "unrecognised issue type: " + m[1]}
	}
	return kind, nil
}

func extractSeverity(body string) (Severity, error) {
	m := severityPattern.FindStringSubmatch(body)
	if m == nil {
		return "", &MissingRequiredFieldError{Field: "severity"}
	}
	sev, ok := severityNames[strings.ToLower(strings.TrimSpace(m[1]))]
	if !ok {
		return "", &SeverityError{Details: "unrecognised severity: " + m[1]}
	}
	return sev, nil
}

func extractDescription(body string) (string, error) {
	m := descriptionPattern.FindStringSubmatch(body)
	if m == nil {
		return "", &MissingRequiredFieldError{Field: "description"}
	}
	desc := strings.TrimSpace(m[1])
	if desc == "" {
		return "", &DescriptionError{Details: "description section is empty"}
	}
	return desc, nil
}

func extractCriteria(body string) ([]CriteriaStatus, error) {
	m := criteriaSectionPattern.FindStringSubmatch(body)
	if m == nil {
		return nil, &MarkdownParseError{Details: "no 'Acceptance Criteria Not Met' section found"}
	}

	lines := criteriaLinePattern.FindAllStringSubmatch(m[1], -1)
	if len(lines) == 0 {
		return nil, &MarkdownParseError{Details: "no checkbox items found under criteria section"}
	}

	criteria := make([]CriteriaStatus, 0, len(lines))
	for _, line := range lines {
		checked := strings.EqualFold(line[1], "x")
		criteria = append(criteria, CriteriaStatus{Checked: checked, Text: strings.TrimSpace(line[2])})
	}
	return criteria, nil
}

func extractReproductionSteps(body string) []string {
	m := reproSectionPattern.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	lines := reproLinePattern.FindAllStringSubmatch(m[1], -1)
	if len(lines) == 0 {
		return nil
	}
	steps := make([]string, 0, len(lines))
	for _, line := range lines {
		steps = append(steps, strings.TrimSpace(line[1]))
	}
	return steps
}

func extractExpectedActual(body string) (expected, actual string) {
	m := expectedActualSection.FindStringSubmatch(body)
	if m == nil {
		return "", ""
	}
	section := m[1]
	if em := expectedLinePattern.FindStringSubmatch(section); em != nil {
		expected = strings.TrimSpace(em[1])
	}
	if am := actualLinePattern.FindStringSubmatch(section); am != nil {
		actual = strings.TrimSpace(am[1])
	}
	return expected, actual
}
