// Package cancel implements task cancellation: stopping every in-flight
// agent workload for a task while a distributed lease and the remediation
// state manager guard against racing with another replica or with
// remediation that is already in progress.
package cancel

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/agentmesh/controller/internal/k8s"
	"github.com/agentmesh/controller/internal/lock"
	"github.com/agentmesh/controller/internal/metrics"
	"github.com/agentmesh/controller/internal/remediation"
)

// Reason explains why a cancellation request produced the result it did.
type Reason string

const (
	ReasonCancelled           Reason = "cancelled"
	ReasonLockHeld            Reason = "lock_held"
	ReasonRemediationInFlight Reason = "remediation_in_progress"
	ReasonAlreadyComplete     Reason = "already_complete"
)

// CancellationError wraps a failure encountered while tearing down a
// workload, keeping the originating workload name alongside the cause.
type CancellationError struct {
	Workload string
	Cause    error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelling workload %s: %v", e.Workload, e.Cause)
}

func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// CancellationRequest identifies the task and optional PR a caller wants
// to stop all agent activity for.
type CancellationRequest struct {
	TaskID   string
	PRNumber int
}

// CancellationResult reports what a cancellation request actually did.
// CancelledAgents and SkippedAgents name workloads by their AgentName.
type CancellationResult struct {
	TaskID          string
	PRNumber        int
	CorrelationID   string
	Reason          Reason
	CancelledAgents []string
	SkippedAgents   []string
}

// Canceller ties together the distributed lock, the remediation state
// manager, and the workload client to implement cancellation safely
// across controller replicas.
type Canceller struct {
	lockClient  lockFactory
	workloads   *k8s.WorkloadClient
	remediation *remediation.StateManager
}

// lockFactory builds the DistributedLock guarding a single cancellation,
// letting tests substitute one backed by a fake Kubernetes client.
type lockFactory func(lockName string) *lock.DistributedLock

// New builds a Canceller that names the lease for a task "cancel-<taskID>".
func New(workloads *k8s.WorkloadClient, states *remediation.StateManager, locks lockFactory) *Canceller {
	return &Canceller{
		workloads:   workloads,
		remediation: states,
		lockClient:  locks,
	}
}

// Cancel runs the full cancellation procedure for req. It never returns an
// error for expected "nothing to do" outcomes (lock held, remediation in
// progress, nothing running) — those are reported via Reason in the
// result. It returns an error only when a workload deletion itself fails.
func (c *Canceller) Cancel(ctx context.Context, req CancellationRequest) (*CancellationResult, error) {
	correlationID := uuid.NewString()
	result := &CancellationResult{
		TaskID:        req.TaskID,
		PRNumber:      req.PRNumber,
		CorrelationID: correlationID,
	}

	defer func() {
		if result.Reason != "" {
			metrics.CancellationsTotal.WithLabelValues(string(result.Reason)).Inc()
		}
	}()

	lockName := fmt.Sprintf("cancel-%s", req.TaskID)
	distLock := c.lockClient(lockName)

	lease, err := distLock.TryAcquire(ctx)
	if err != nil {
		if _, held := err.(*lock.ErrLockHeld); held {
			log.Printf("cancel[%s]: lock %s held by another replica, skipping", correlationID, lockName)
			result.Reason = ReasonLockHeld
			return result, nil
		}
		return nil, fmt.Errorf("acquiring cancellation lock %s: %w", lockName, err)
	}
	defer func() {
		if releaseErr := lease.Release(ctx); releaseErr != nil {
			log.Printf("cancel[%s]: releasing lock %s: %v", correlationID, lockName, releaseErr)
		}
	}()

	if c.remediation.IsInProgress(req.PRNumber, req.TaskID) {
		log.Printf("cancel[%s]: remediation in progress for PR #%d task %s, skipping", correlationID, req.PRNumber, req.TaskID)
		result.Reason = ReasonRemediationInFlight
		return result, nil
	}

	workloads, err := c.workloads.ListByTask(ctx, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("listing workloads for task %s: %w", req.TaskID, err)
	}

	if !anyCancellable(workloads) {
		log.Printf("cancel[%s]: no cancellable workloads for task %s, nothing to do", correlationID, req.TaskID)
		result.Reason = ReasonAlreadyComplete
		return result, nil
	}

	cancelled, skipped, err := c.performCancellation(ctx, correlationID, workloads)
	if err != nil {
		return nil, err
	}

	result.Reason = ReasonCancelled
	result.CancelledAgents = cancelled
	result.SkippedAgents = skipped
	return result, nil
}

func anyCancellable(workloads []k8s.Workload) bool {
	for _, w := range workloads {
		if w.IsCancellable() {
			return true
		}
	}
	return false
}

func (c *Canceller) performCancellation(ctx context.Context, correlationID string, workloads []k8s.Workload) ([]string, []string, error) {
	var cancelled, skipped []string

	for _, w := range workloads {
		if !w.IsCancellable() {
			skipped = append(skipped, w.AgentName)
			continue
		}

		if err := c.workloads.DeleteNow(ctx, w.Name); err != nil {
			return cancelled, skipped, &CancellationError{Workload: w.Name, Cause: err}
		}
		log.Printf("cancel[%s]: deleted workload %s (agent %s)", correlationID, w.Name, w.AgentName)
		cancelled = append(cancelled, w.AgentName)
	}

	return cancelled, skipped, nil
}
