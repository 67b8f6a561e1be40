// Package metrics exposes the controller's Prometheus instrumentation. All
// collectors are registered against the default registry so a single
// promhttp.Handler() in cmd/controller serves every package's metrics
// without each package threading a registry through its constructors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// LeaseAcquisitions counts distributed lock acquisition attempts by
	// operation and outcome ("acquired", "held", "error").
	LeaseAcquisitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentmesh_lease_acquisitions_total",
		Help: "Distributed lease acquisition attempts, by operation and outcome.",
	}, []string{"operation", "outcome"})

	// WorkflowTransitions counts label-driven PR state transitions by the
	// trigger that caused them and whether they succeeded.
	WorkflowTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentmesh_workflow_transitions_total",
		Help: "PR workflow label transitions, by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	// DedupHits counts healer deduplication decisions by source and
	// whether the incoming failure was judged a duplicate.
	DedupHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentmesh_healer_dedup_total",
		Help: "Healer deduplication checks, by source and result.",
	}, []string{"source", "result"})

	// CancellationsTotal counts cancellation requests by their resolved
	// reason (cancelled, lock_held, remediation_in_progress, already_complete).
	CancellationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentmesh_cancellations_total",
		Help: "Task cancellation requests, by resolved reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(LeaseAcquisitions, WorkflowTransitions, DedupHits, CancellationsTotal)
}
