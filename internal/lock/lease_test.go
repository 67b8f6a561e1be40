package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	coordinationv1 "k8s.io/api/coordination/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
)

func newFakeClient(t *testing.T, objs ...client.Object) client.Client {
	t.Helper()
	scheme := runtime.NewScheme()
	if err := coordinationv1.AddToScheme(scheme); err != nil {
		t.Fatalf("AddToScheme: %v", err)
	}
	return fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build()
}

func TestTryAcquire_NewLease(t *testing.T) {
	c := newFakeClient(t)
	lock := New(c, "agentmesh", "remediation-pr-42", "controller-pod-1", "remediation-cancel")

	active, err := lock.TryAcquire(context.Background())
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	defer active.Release(context.Background())

	if active.Holder() != "controller-pod-1" {
		t.Errorf("Holder() = %q, want %q", active.Holder(), "controller-pod-1")
	}
	if !active.IsValid() {
		t.Error("IsValid() = false, want true for freshly acquired lease")
	}
}

func TestTryAcquire_HeldByAnother(t *testing.T) {
	holder := "other-pod"
	dur := int32(30)
	now := metav1.NewMicroTime(time.Now())
	existing := &coordinationv1.Lease{
		ObjectMeta: metav1.ObjectMeta{Name: "remediation-pr-42", Namespace: "agentmesh"},
		Spec: coordinationv1.LeaseSpec{
			HolderIdentity:       &holder,
			LeaseDurationSeconds: &dur,
			RenewTime:            &now,
		},
	}
	c := newFakeClient(t, existing)
	lock := New(c, "agentmesh", "remediation-pr-42", "controller-pod-1", "remediation-cancel")

	_, err := lock.TryAcquire(context.Background())
	if err == nil {
		t.Fatal("TryAcquire() error = nil, want ErrLockHeld")
	}
	var heldErr *ErrLockHeld
	if !errors.As(err, &heldErr) {
		t.Fatalf("error type = %T, want *ErrLockHeld", err)
	}
	if heldErr.Holder != "other-pod" {
		t.Errorf("Holder = %q, want %q", heldErr.Holder, "other-pod")
	}
}

func TestTryAcquire_TakesOverExpiredLease(t *testing.T) {
	holder := "dead-pod"
	dur := int32(1)
	expired := metav1.NewMicroTime(time.Now().Add(-time.Hour))
	existing := &coordinationv1.Lease{
		ObjectMeta: metav1.ObjectMeta{Name: "remediation-pr-42", Namespace: "agentmesh"},
		Spec: coordinationv1.LeaseSpec{
			HolderIdentity:       &holder,
			LeaseDurationSeconds: &dur,
			RenewTime:            &expired,
		},
	}
	c := newFakeClient(t, existing)
	lock := New(c, "agentmesh", "remediation-pr-42", "controller-pod-1", "remediation-cancel")

	active, err := lock.TryAcquire(context.Background())
	if err != nil {
		t.Fatalf("TryAcquire() error = %v, want takeover to succeed", err)
	}
	defer active.Release(context.Background())

	if active.Holder() != "controller-pod-1" {
		t.Errorf("Holder() = %q, want %q", active.Holder(), "controller-pod-1")
	}
}

func TestRelease_DeletesLease(t *testing.T) {
	c := newFakeClient(t)
	lock := New(c, "agentmesh", "remediation-pr-99", "controller-pod-1", "remediation-cancel").
		WithRenewalInterval(5 * time.Millisecond)

	active, err := lock.TryAcquire(context.Background())
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}

	if err := active.Release(context.Background()); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	var lease coordinationv1.Lease
	err = c.Get(context.Background(), client.ObjectKey{Namespace: "agentmesh", Name: "remediation-pr-99"}, &lease)
	if err == nil {
		t.Error("Get() after Release() succeeded, want NotFound")
	}
}

func TestRelease_IsIdempotentOnMissingLease(t *testing.T) {
	c := newFakeClient(t)
	lock := New(c, "agentmesh", "remediation-pr-7", "controller-pod-1", "remediation-cancel")

	active, err := lock.TryAcquire(context.Background())
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}

	if err := active.Release(context.Background()); err != nil {
		t.Fatalf("first Release() error = %v", err)
	}
}
