package k8s

import (
	"context"
	"errors"
	"testing"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	agentmeshv1alpha1 "github.com/agentmesh/controller/internal/k8s/v1alpha1"
)

func newFakeWorkloadClient(t *testing.T, objs ...runtime.Object) *WorkloadClient {
	t.Helper()
	scheme := runtime.NewScheme()
	if err := agentmeshv1alpha1.AddToScheme(scheme); err != nil {
		t.Fatalf("AddToScheme: %v", err)
	}
	c := fake.NewClientBuilder().WithScheme(scheme).WithRuntimeObjects(objs...).Build()
	return NewWorkloadClient(c, "agentmesh")
}

func run(name string, phase agentmeshv1alpha1.RunPhase) *agentmeshv1alpha1.ImplementationRun {
	return &agentmeshv1alpha1.ImplementationRun{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "agentmesh",
			Labels:    map[string]string{"task-id": "task-1"},
		},
		Spec:   agentmeshv1alpha1.RunSpec{TaskID: "task-1", AgentName: "rex"},
		Status: agentmeshv1alpha1.RunStatus{Phase: phase},
	}
}

func TestListByTask(t *testing.T) {
	client := newFakeWorkloadClient(t,
		run("run-a", agentmeshv1alpha1.PhaseRunning),
		run("run-b", agentmeshv1alpha1.PhaseSucceeded),
	)

	workloads, err := client.ListByTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("ListByTask() error = %v", err)
	}
	if len(workloads) != 2 {
		t.Fatalf("workloads = %v, want 2", workloads)
	}
}

func TestWorkload_IsCancellable(t *testing.T) {
	cases := []struct {
		phase agentmeshv1alpha1.RunPhase
		want  bool
	}{
		{agentmeshv1alpha1.PhaseRunning, true},
		{agentmeshv1alpha1.PhasePending, true},
		{"", true},
		{agentmeshv1alpha1.PhaseSucceeded, false},
		{agentmeshv1alpha1.PhaseFailed, false},
	}
	for _, c := range cases {
		w := Workload{Phase: c.phase}
		if got := w.IsCancellable(); got != c.want {
			t.Errorf("IsCancellable(%v) = %v, want %v", c.phase, got, c.want)
		}
	}
}

func TestDeleteNow(t *testing.T) {
	client := newFakeWorkloadClient(t, run("run-a", agentmeshv1alpha1.PhaseRunning))

	if err := client.DeleteNow(context.Background(), "run-a"); err != nil {
		t.Fatalf("DeleteNow() error = %v", err)
	}

	workloads, err := client.ListByTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("ListByTask() error = %v", err)
	}
	if len(workloads) != 0 {
		t.Errorf("workloads after delete = %v, want none", workloads)
	}
}

func TestDeleteNow_NotFoundIsNotSwallowed(t *testing.T) {
	client := newFakeWorkloadClient(t)

	err := client.DeleteNow(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error deleting a nonexistent workload")
	}
	if !apierrors.IsNotFound(errors.Unwrap(err)) {
		t.Errorf("expected a wrapped NotFound error, got %v", err)
	}
}
