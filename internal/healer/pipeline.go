package healer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentmesh/controller/internal/k8s"
	agentmeshv1alpha1 "github.com/agentmesh/controller/internal/k8s/v1alpha1"
	"github.com/agentmesh/controller/internal/memory"
	"github.com/agentmesh/controller/internal/metrics"
)

// DefaultMaxConcurrent is the per-pipeline cap on simultaneously active
// remediations. Failures arriving above the cap are acknowledged but not
// spawned; they will re-fire on the next reporting cycle.
const DefaultMaxConcurrent = 3

// PipelineConfig wires a Pipeline's collaborators and limits. Redis is
// optional: when set, dedup state is shared across controller replicas
// with an in-process fallback; when nil, each replica dedups locally.
type PipelineConfig struct {
	Router        RouterConfig
	MaxConcurrent int
	Namespace     string
	Redis         *redis.Client
	DedupWindow   time.Duration
}

// Pipeline classifies, deduplicates, routes, and spawns remediations for
// one failure source (CI, workflow, or platform). All three pipelines
// share this implementation; only the Failure values they feed in differ.
type Pipeline struct {
	source    Source
	config    PipelineConfig
	dedup     dedupTracker
	workloads *k8s.WorkloadClient
	memory    *memory.Client
	logger    *log.Logger
}

// NewPipeline builds a Pipeline for source, spawning workloads via
// workloads and recording outcomes via mem. A nil logger falls back to
// log.Default().
func NewPipeline(source Source, cfg PipelineConfig, workloads *k8s.WorkloadClient, mem *memory.Client, logger *log.Logger) *Pipeline {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if logger == nil {
		logger = log.Default()
	}

	var dedup dedupTracker
	if cfg.Redis != nil {
		dedup = NewRedisDeduplicator(cfg.Redis, fmt.Sprintf("healer:%s", source), cfg.DedupWindow, logger)
	} else {
		dedup = NewDeduplicator().WithWindow(orDefaultWindow(cfg.DedupWindow))
	}

	return &Pipeline{
		source:    source,
		config:    cfg,
		dedup:     dedup,
		workloads: workloads,
		memory:    mem,
		logger:    logger,
	}
}

func orDefaultWindow(window time.Duration) time.Duration {
	if window <= 0 {
		return DefaultDedupWindow
	}
	return window
}

// ProcessResult reports what Process did with an incoming failure.
type ProcessResult struct {
	Spawned      bool
	WorkloadName string
	Diagnosis    Diagnosis
	SkipReason   string
}

// Process runs one failure through classification, deduplication,
// routing, and spawning. It never returns an error for expected
// no-op outcomes (duplicate, over cap); those are reported via
// SkipReason. An error is returned only if the spawn itself fails.
func (p *Pipeline) Process(ctx context.Context, failure Failure) (*ProcessResult, error) {
	alertType := classifierAlertType(failure)

	if p.dedup.IsDuplicate(failure.Fingerprint, alertType, failure.PodName) {
		metrics.DedupHits.WithLabelValues(string(p.source), "duplicate").Inc()
		p.logger.Printf("healer[%s]: duplicate failure fingerprint=%s, skipping", p.source, failure.Fingerprint)
		return &ProcessResult{SkipReason: "duplicate"}, nil
	}
	metrics.DedupHits.WithLabelValues(string(p.source), "unique").Inc()

	if p.dedup.ActiveCount() >= p.config.MaxConcurrent {
		p.logger.Printf("healer[%s]: max concurrent remediations (%d) reached, deferring fingerprint=%s", p.source, p.config.MaxConcurrent, failure.Fingerprint)
		return &ProcessResult{SkipReason: "concurrency_cap"}, nil
	}

	kind, summary := Classify(failure.Logs, failure.AlertName)
	target := Route(kind, p.config.Router)

	p.queryPastSolutions(ctx, kind, target)

	diagnosis := Diagnosis{Kind: kind, Summary: summary, Target: target}

	p.dedup.Track(failure.Fingerprint, alertType, failure.PodName)

	name, err := p.spawn(ctx, failure, diagnosis)
	if err != nil {
		p.dedup.MarkDone(failure.Fingerprint)
		return nil, fmt.Errorf("spawning remediation for fingerprint %s: %w", failure.Fingerprint, err)
	}

	p.logger.Printf("healer[%s]: spawned %s for fingerprint=%s agent=%s kind=%s", p.source, name, failure.Fingerprint, target.Agent, kind)

	return &ProcessResult{Spawned: true, WorkloadName: name, Diagnosis: diagnosis}, nil
}

// queryPastSolutions consults the memory store for historical context
// before routing finalizes. Results are logged but never override the
// classifier's pick, matching the non-binding nature of these queries.
func (p *Pipeline) queryPastSolutions(ctx context.Context, kind FailureKind, target RoutingTarget) {
	if p.memory == nil {
		return
	}
	records := p.memory.Search(ctx, string(kind), &memory.SearchFilters{FailureType: string(kind)}, 5)
	if len(records) > 0 {
		p.logger.Printf("healer[%s]: found %d past solutions for kind=%s (top agent target=%s)", p.source, len(records), kind, target.Agent)
	}
}

func (p *Pipeline) spawn(ctx context.Context, failure Failure, diagnosis Diagnosis) (string, error) {
	prompt := BuildPrompt(failure, diagnosis)

	labels := map[string]string{
		"app.kubernetes.io/name": "healer",
		"healer.dev/source":      string(p.source),
		"healer.dev/kind":        string(diagnosis.Kind),
		"healer.dev/fingerprint": SanitizeLabelValue(failure.Fingerprint),
	}

	return p.workloads.Spawn(ctx, k8s.SpawnRequest{
		GenerateName: fmt.Sprintf("healer-%s-%s-", p.source, diagnosis.Target.Agent),
		Labels:       labels,
		Spec: agentmeshv1alpha1.RunSpec{
			AgentName:  diagnosis.Target.Agent,
			CLIKind:    diagnosis.Target.CLIKind,
			Model:      diagnosis.Target.Model,
			GitHubApp:  diagnosis.Target.GitHubApp,
			Repository: diagnosis.Target.Repository,
			Prompt:     prompt,
		},
	})
}

// RecordOutcome persists a remediation's terminal result and the routing
// decision it represents to the memory store.
func (p *Pipeline) RecordOutcome(ctx context.Context, fingerprint string, record OutcomeRecord, decision RoutingDecisionRecord) {
	p.dedup.MarkDone(fingerprint)

	if p.memory == nil {
		return
	}

	p.memory.Create(ctx, fmt.Sprintf("%s remediation %s for %s on %s", record.Agent, record.Outcome, record.FailureKind, record.WorkflowName), map[string]string{
		"category":      "remediation_outcome",
		"agent":         record.Agent,
		"failure_type":  string(record.FailureKind),
		"outcome":       string(record.Outcome),
		"workflow_name": record.WorkflowName,
		"repository":    record.Repository,
	})

	p.memory.Create(ctx, fmt.Sprintf("routing decision: selected=%s actual=%s success=%v", decision.SelectedAgent, decision.ActualAgent, decision.Success), map[string]string{
		"category": "routing_decision",
		"agent":    decision.SelectedAgent,
	})
}

func classifierAlertType(failure Failure) string {
	if failure.AlertName != "" {
		return failure.AlertName
	}
	return string(failure.Source)
}
