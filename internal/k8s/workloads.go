// Package k8s provides a thin typed wrapper over the controller's custom
// resources, used by the cancellation procedure and the healer to list and
// delete agent workloads.
package k8s

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	agentmeshv1alpha1 "github.com/agentmesh/controller/internal/k8s/v1alpha1"
)

// Workload is the minimal view of an ImplementationRun or
// DocumentationRun the cancellation procedure and healer need.
type Workload struct {
	Name      string
	Namespace string
	AgentName string
	Phase     agentmeshv1alpha1.RunPhase
}

// IsCancellable reports whether the workload may still be deleted to stop
// in-flight work: Running or Pending, or no phase recorded yet.
func (w Workload) IsCancellable() bool {
	switch w.Phase {
	case agentmeshv1alpha1.PhaseRunning, agentmeshv1alpha1.PhasePending, "":
		return true
	default:
		return false
	}
}

// WorkloadClient lists and deletes ImplementationRun workloads for a task.
type WorkloadClient struct {
	client    client.Client
	namespace string
}

// NewWorkloadClient wraps a controller-runtime client scoped to namespace.
func NewWorkloadClient(c client.Client, namespace string) *WorkloadClient {
	return &WorkloadClient{client: c, namespace: namespace}
}

// ListByTask returns every ImplementationRun labelled task-id=taskID.
func (w *WorkloadClient) ListByTask(ctx context.Context, taskID string) ([]Workload, error) {
	var runs agentmeshv1alpha1.ImplementationRunList
	if err := w.client.List(ctx, &runs,
		client.InNamespace(w.namespace),
		client.MatchingLabels{"task-id": taskID},
	); err != nil {
		return nil, fmt.Errorf("listing implementation runs for task %s: %w", taskID, err)
	}

	workloads := make([]Workload, 0, len(runs.Items))
	for _, r := range runs.Items {
		workloads = append(workloads, Workload{
			Name:      r.Name,
			Namespace: r.Namespace,
			AgentName: r.Spec.AgentName,
			Phase:     r.Status.Phase,
		})
	}
	return workloads, nil
}

// DeleteNow deletes the named ImplementationRun immediately, with zero
// grace period so its pod is torn down without waiting for a graceful
// shutdown.
func (w *WorkloadClient) DeleteNow(ctx context.Context, name string) error {
	zero := int64(0)
	run := &agentmeshv1alpha1.ImplementationRun{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: w.namespace},
	}
	if err := w.client.Delete(ctx, run, &client.DeleteOptions{GracePeriodSeconds: &zero}); err != nil {
		return fmt.Errorf("deleting implementation run %s: %w", name, err)
	}
	return nil
}

// SpawnRequest describes a new ImplementationRun to create for a
// remediation or task dispatch.
type SpawnRequest struct {
	GenerateName string
	Labels       map[string]string
	Spec         agentmeshv1alpha1.RunSpec
}

// Spawn creates a new ImplementationRun from req and returns the name the
// API server generated for it.
func (w *WorkloadClient) Spawn(ctx context.Context, req SpawnRequest) (string, error) {
	run := &agentmeshv1alpha1.ImplementationRun{
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: req.GenerateName,
			Namespace:    w.namespace,
			Labels:       req.Labels,
		},
		Spec: req.Spec,
	}
	if err := w.client.Create(ctx, run); err != nil {
		return "", fmt.Errorf("creating implementation run %s*: %w", req.GenerateName, err)
	}
	return run.Name, nil
}
