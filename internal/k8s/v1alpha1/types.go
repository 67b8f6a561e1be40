// Package v1alpha1 contains the custom resource types the controller
// reconciles: ImplementationRun drives a single CLI agent invocation
// against a task, DocumentationRun drives the documentation-generation
// counterpart. Both share the same run lifecycle shape.
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// RunPhase is the lifecycle phase of an ImplementationRun or
// DocumentationRun.
type RunPhase string

const (
	PhasePending   RunPhase = "Pending"
	PhaseRunning   RunPhase = "Running"
	PhaseSucceeded RunPhase = "Succeeded"
	PhaseFailed    RunPhase = "Failed"
)

// RunSpec is the desired state shared by ImplementationRun and
// DocumentationRun.
type RunSpec struct {
	// TaskID identifies the task this run implements or documents.
	TaskID string `json:"taskId"`

	// PRNumber is the pull request this run is associated with, if any.
	// +optional
	PRNumber int `json:"prNumber,omitempty"`

	// AgentName is the logical agent identity (e.g. "rex", "cleo") this
	// run is dispatched as.
	AgentName string `json:"agentName"`

	// CLIKind selects which CLI adapter drives this run.
	CLIKind string `json:"cliKind"`

	// Model is the model identifier passed to the CLI.
	Model string `json:"model"`

	// GitHubApp is the GitHub App identity used for repository access.
	GitHubApp string `json:"githubApp"`

	// Repository is the "owner/name" repository this run operates on.
	Repository string `json:"repository"`

	// Prompt is the task prompt handed to the agent.
	Prompt string `json:"prompt"`
}

// RunStatus is the observed state shared by ImplementationRun and
// DocumentationRun.
type RunStatus struct {
	// Phase is the current lifecycle phase.
	// +optional
	Phase RunPhase `json:"phase,omitempty"`

	// SessionID identifies the CLI session backing this run, once started.
	// +optional
	SessionID string `json:"sessionId,omitempty"`

	// JobName is the name of the Kubernetes Job executing this run.
	// +optional
	JobName string `json:"jobName,omitempty"`

	// ConfigMapName is the name of the ConfigMap holding this run's
	// generated CLI configuration artefact.
	// +optional
	ConfigMapName string `json:"configMapName,omitempty"`

	// Attempts counts how many times this run has been (re)dispatched.
	// +optional
	Attempts int `json:"attempts,omitempty"`

	// Conditions record detailed status history.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase"
// +kubebuilder:printcolumn:name="Task",type="string",JSONPath=".spec.taskId"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// ImplementationRun is the Schema for the implementationruns API. One
// instance represents a single CLI agent invocation working a task's
// implementation.
type ImplementationRun struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   RunSpec   `json:"spec,omitempty"`
	Status RunStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ImplementationRunList contains a list of ImplementationRun.
type ImplementationRunList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ImplementationRun `json:"items"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase"
// +kubebuilder:printcolumn:name="Task",type="string",JSONPath=".spec.taskId"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// DocumentationRun is the Schema for the documentationruns API. One
// instance represents a single CLI agent invocation generating or
// updating documentation for a task.
type DocumentationRun struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   RunSpec   `json:"spec,omitempty"`
	Status RunStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// DocumentationRunList contains a list of DocumentationRun.
type DocumentationRunList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DocumentationRun `json:"items"`
}

func init() {
	SchemeBuilder.Register(
		&ImplementationRun{}, &ImplementationRunList{},
		&DocumentationRun{}, &DocumentationRunList{},
	)
}
