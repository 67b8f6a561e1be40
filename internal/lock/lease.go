// Package lock implements mutual exclusion across controller replicas using
// the Kubernetes coordination/v1 Lease API, so that only one replica drives
// a given cancellation or remediation operation at a time.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	coordinationv1 "k8s.io/api/coordination/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/agentmesh/controller/internal/metrics"
)

const (
	// DefaultLeaseDuration is how long a lease is considered held before it
	// is eligible for takeover by another holder.
	DefaultLeaseDuration = 30 * time.Second
	// DefaultRenewalInterval is how often an ActiveLease renews itself in
	// the background. Must be comfortably shorter than the lease duration.
	DefaultRenewalInterval = 10 * time.Second

	annotationHolder    = "remediation.agentmesh.dev/holder"
	annotationAcquired  = "remediation.agentmesh.dev/acquired"
	annotationOperation = "remediation.agentmesh.dev/operation"
)

// ErrLockHeld is returned when the lease is currently held by a different,
// non-expired holder.
type ErrLockHeld struct {
	Holder string
}

func (e *ErrLockHeld) Error() string {
	return fmt.Sprintf("lock is held by another holder: %s", e.Holder)
}

// DistributedLock acquires and releases a single named Lease.
type DistributedLock struct {
	client           client.Client
	namespace        string
	lockName         string
	holderName       string
	operation        string
	leaseDuration    time.Duration
	renewalInterval  time.Duration
}

// New creates a DistributedLock for lockName in namespace, identifying this
// replica as holderName. Call WithLeaseDuration/WithRenewalInterval to
// override the 30s/10s defaults before calling TryAcquire.
func New(c client.Client, namespace, lockName, holderName, operation string) *DistributedLock {
	return &DistributedLock{
		client:          c,
		namespace:       namespace,
		lockName:        lockName,
		holderName:      holderName,
		operation:       operation,
		leaseDuration:   DefaultLeaseDuration,
		renewalInterval: DefaultRenewalInterval,
	}
}

// WithLeaseDuration overrides the default lease duration.
func (d *DistributedLock) WithLeaseDuration(dur time.Duration) *DistributedLock {
	d.leaseDuration = dur
	return d
}

// WithRenewalInterval overrides the default background renewal interval.
func (d *DistributedLock) WithRenewalInterval(interval time.Duration) *DistributedLock {
	d.renewalInterval = interval
	return d
}

// TryAcquire attempts to create the lease. If the lease already exists and
// is expired, it is taken over. If it exists and is still valid, ErrLockHeld
// is returned naming the current holder.
func (d *DistributedLock) TryAcquire(ctx context.Context) (*ActiveLease, error) {
	lease := d.newLeaseObject()

	err := d.client.Create(ctx, lease)
	switch {
	case err == nil:
		metrics.LeaseAcquisitions.WithLabelValues(d.operation, "acquired").Inc()
		return newActiveLease(d.client, lease, d.renewalInterval), nil
	case apierrors.IsAlreadyExists(err):
		return d.tryAcquireExisting(ctx)
	default:
		metrics.LeaseAcquisitions.WithLabelValues(d.operation, "error").Inc()
		return nil, fmt.Errorf("create lease %s/%s: %w", d.namespace, d.lockName, err)
	}
}

func (d *DistributedLock) tryAcquireExisting(ctx context.Context) (*ActiveLease, error) {
	existing := &coordinationv1.Lease{}
	if err := d.client.Get(ctx, client.ObjectKey{Namespace: d.namespace, Name: d.lockName}, existing); err != nil {
		metrics.LeaseAcquisitions.WithLabelValues(d.operation, "error").Inc()
		return nil, fmt.Errorf("get lease %s/%s: %w", d.namespace, d.lockName, err)
	}

	if !isExpired(existing) {
		holder := "unknown"
		if existing.Spec.HolderIdentity != nil {
			holder = *existing.Spec.HolderIdentity
		}
		metrics.LeaseAcquisitions.WithLabelValues(d.operation, "held").Inc()
		return nil, &ErrLockHeld{Holder: holder}
	}

	now := metav1.NewMicroTime(time.Now())
	dur := int32(d.leaseDuration.Seconds())
	existing.Spec.HolderIdentity = &d.holderName
	existing.Spec.LeaseDurationSeconds = &dur
	existing.Spec.AcquireTime = &now
	existing.Spec.RenewTime = &now
	if existing.Annotations == nil {
		existing.Annotations = map[string]string{}
	}
	existing.Annotations[annotationHolder] = d.holderName
	existing.Annotations[annotationAcquired] = time.Now().UTC().Format(time.RFC3339)
	existing.Annotations[annotationOperation] = d.operation

	if err := d.client.Update(ctx, existing); err != nil {
		metrics.LeaseAcquisitions.WithLabelValues(d.operation, "error").Inc()
		return nil, fmt.Errorf("take over expired lease %s/%s: %w", d.namespace, d.lockName, err)
	}
	metrics.LeaseAcquisitions.WithLabelValues(d.operation, "acquired").Inc()
	return newActiveLease(d.client, existing, d.renewalInterval), nil
}

func (d *DistributedLock) newLeaseObject() *coordinationv1.Lease {
	now := metav1.NewMicroTime(time.Now())
	dur := int32(d.leaseDuration.Seconds())
	return &coordinationv1.Lease{
		ObjectMeta: metav1.ObjectMeta{
			Name:      d.lockName,
			Namespace: d.namespace,
			Annotations: map[string]string{
				annotationHolder:    d.holderName,
				annotationAcquired:  time.Now().UTC().Format(time.RFC3339),
				annotationOperation: d.operation,
			},
		},
		Spec: coordinationv1.LeaseSpec{
			HolderIdentity:       &d.holderName,
			LeaseDurationSeconds: &dur,
			AcquireTime:          &now,
			RenewTime:            &now,
		},
	}
}

// isExpired reports whether lease's renew time plus its duration has
// already passed, or whether the lease carries no usable spec at all.
func isExpired(lease *coordinationv1.Lease) bool {
	if lease.Spec.RenewTime == nil || lease.Spec.LeaseDurationSeconds == nil {
		return true
	}
	expiry := lease.Spec.RenewTime.Add(time.Duration(*lease.Spec.LeaseDurationSeconds) * time.Second)
	return expiry.Before(time.Now())
}

// ActiveLease is a held lease, renewed in the background until Release is
// called or the process that created it exits. Its renewal goroutine's
// lifetime is tied 1:1 to this handle.
type ActiveLease struct {
	client client.Client
	mu     sync.Mutex
	lease  *coordinationv1.Lease
	cancel context.CancelFunc
	done   chan struct{}
}

func newActiveLease(c client.Client, lease *coordinationv1.Lease, renewalInterval time.Duration) *ActiveLease {
	ctx, cancel := context.WithCancel(context.Background())
	al := &ActiveLease{
		client: c,
		lease:  lease,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go al.renewLoop(ctx, renewalInterval)
	return al
}

func (a *ActiveLease) renewLoop(ctx context.Context, interval time.Duration) {
	defer close(a.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.renew(ctx); err != nil {
				return
			}
		}
	}
}

func (a *ActiveLease) renew(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := &coordinationv1.Lease{}
	if err := a.client.Get(ctx, client.ObjectKey{Namespace: a.lease.Namespace, Name: a.lease.Name}, current); err != nil {
		return err
	}
	now := metav1.NewMicroTime(time.Now())
	current.Spec.RenewTime = &now
	if err := a.client.Update(ctx, current); err != nil {
		return err
	}
	a.lease = current
	return nil
}

// Name returns the lease's name.
func (a *ActiveLease) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lease.Name
}

// Holder returns the lease's recorded holder identity.
func (a *ActiveLease) Holder() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lease.Spec.HolderIdentity == nil {
		return ""
	}
	return *a.lease.Spec.HolderIdentity
}

// IsValid reports whether the lease, as last known to this handle, has not
// yet expired.
func (a *ActiveLease) IsValid() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !isExpired(a.lease)
}

// Release stops the renewal goroutine and deletes the lease. Always call
// this when the guarded operation completes, even on failure, so the lease
// does not block other replicas until it naturally expires.
func (a *ActiveLease) Release(ctx context.Context) error {
	a.cancel()
	<-a.done

	a.mu.Lock()
	name, namespace := a.lease.Name, a.lease.Namespace
	a.mu.Unlock()

	lease := &coordinationv1.Lease{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace}}
	if err := a.client.Delete(ctx, lease); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete lease %s/%s: %w", namespace, name, err)
	}
	return nil
}
