// Package healer watches failed CI runs, Argo workflow failures, and
// platform alerts, classifies each failure, routes a remediation to a
// specialist agent, enforces deduplication and concurrency caps, and
// records outcomes back to the memory store for future routing decisions.
package healer

import "time"

// Source identifies which ingestion pipeline produced a failure.
type Source string

const (
	SourceCI       Source = "ci"
	SourceWorkflow Source = "workflow"
	SourcePlatform Source = "platform"
)

// FailureKind is the classifier's diagnosis of what went wrong.
type FailureKind string

const (
	FailureRustCompile FailureKind = "rust_compile"
	FailureClippy      FailureKind = "clippy"
	FailureTest        FailureKind = "test"
	FailureGitMerge    FailureKind = "git_merge"
	FailureDocker      FailureKind = "docker"
	FailureOOM         FailureKind = "oom"
	FailureTimeout     FailureKind = "timeout"
	FailurePermissions FailureKind = "permissions"
	FailureUnknown     FailureKind = "unknown"
)

// Failure is the normalised input to the healer, regardless of which
// pipeline produced it: a CI check-run failure, an Argo workflow alert,
// or a platform alert all reduce to this shape before classification.
type Failure struct {
	Source       Source
	Fingerprint  string
	Severity     string
	Namespace    string
	PodName      string
	WorkflowName string
	AlertName    string
	StartedAt    time.Time
	Logs         string

	// Repository and PRNumber are only populated for CI failures.
	Repository string
	PRNumber   int
}

// RoutingTarget is the specialist agent and invocation parameters the
// router selected for a classified failure.
type RoutingTarget struct {
	Agent      string
	CLIKind    string
	Model      string
	GitHubApp  string
	Repository string
}

// Diagnosis bundles a failure's classification with the human-readable
// explanation the classifier produced.
type Diagnosis struct {
	Kind    FailureKind
	Summary string
	Target  RoutingTarget
}

// Outcome is the terminal state of a spawned remediation.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeEscalated Outcome = "escalated"
)

// OutcomeRecord is persisted to the memory store when a remediation
// terminates.
type OutcomeRecord struct {
	Agent        string
	FailureKind  FailureKind
	Outcome      Outcome
	WorkflowName string
	Repository   string
	RunID        string
}

// RoutingDecisionRecord captures whether the classifier's agent pick
// matched the agent that actually resolved the failure.
type RoutingDecisionRecord struct {
	SelectedAgent string
	ActualAgent   string
	Success       bool
}

// EscalationRecord is persisted when retries exceed the configured limit.
type EscalationRecord struct {
	FailureKind FailureKind
	Attempts    int
	Reason      string
}
