package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/google/go-github/v55/github"

	"github.com/agentmesh/controller/internal/cancel"
	"github.com/agentmesh/controller/internal/healer"
)

// handleAlertmanagerWebhook ingests a batch of Alertmanager alerts and
// dispatches each firing one to the platform pipeline. Resolved alerts
// are acknowledged but otherwise ignored.
func (a *app) handleAlertmanagerWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading request body", http.StatusBadRequest)
		return
	}

	payload, err := healer.ParseWebhookPayload(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pipeline, ok := a.pipelines[healer.SourcePlatform]
	if !ok {
		http.Error(w, "platform pipeline not configured", http.StatusInternalServerError)
		return
	}

	for _, alert := range payload.FiringAlerts() {
		failure := alert.ToFailure(healer.SourcePlatform)
		if _, err := pipeline.Process(r.Context(), failure); err != nil {
			log.Printf("healer: processing alert %s: %v", alert.Fingerprint, err)
		}
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleGitHubWebhook dispatches a GitHub webhook delivery to the
// appropriate handler based on its event type, validating the payload
// signature against the configured webhook secret when one is set.
func (a *app) handleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	var secret []byte
	if a.cfg.GitHub.WebhookSecret != "" {
		secret = []byte(a.cfg.GitHub.WebhookSecret)
	}

	body, err := github.ValidatePayload(r, secret)
	if err != nil {
		http.Error(w, "invalid webhook signature", http.StatusUnauthorized)
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(r), body)
	if err != nil {
		http.Error(w, "unrecognized webhook event", http.StatusBadRequest)
		return
	}

	switch event := event.(type) {
	case *github.IssueCommentEvent:
		a.handleIssueComment(w, r, event)
	case *github.PullRequestEvent:
		a.handlePullRequestEvent(w, r, event)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleIssueComment parses a PR review comment into structured feedback
// and advances the label state machine on the reviewer's behalf.
func (a *app) handleIssueComment(w http.ResponseWriter, r *http.Request, event *github.IssueCommentEvent) {
	if event.GetIssue() == nil || !event.GetIssue().IsPullRequest() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if event.GetAction() != "created" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	prNumber := event.GetIssue().GetNumber()
	taskID := taskIDFromLabels(event.GetIssue().Labels)
	author := event.GetComment().GetUser().GetLogin()
	body := event.GetComment().GetBody()
	commentID := event.GetComment().GetID()

	feedback, err := a.parser.ParseComment(body, author, commentID, prNumber, taskID)
	if err != nil {
		log.Printf("remediation: comment %d on PR #%d not actionable: %v", commentID, prNumber, err)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	a.states.RecordFeedbackAccepted(prNumber, taskID)

	if err := a.orchestrator.TransitionState(r.Context(), prNumber, taskID, "feedback_received"); err != nil {
		log.Printf("workflow: transitioning PR #%d on feedback: %v", prNumber, err)
		http.Error(w, "transition failed", http.StatusInternalServerError)
		return
	}

	log.Printf("remediation: recorded %s/%s feedback for PR #%d", feedback.IssueType, feedback.Severity, prNumber)
	w.WriteHeader(http.StatusAccepted)
}

// handlePullRequestEvent cancels in-flight agent workloads when a pull
// request the controller manages is closed or merged.
func (a *app) handlePullRequestEvent(w http.ResponseWriter, r *http.Request, event *github.PullRequestEvent) {
	if event.GetAction() != "closed" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	pr := event.GetPullRequest()
	taskID := taskIDFromLabels(pr.Labels)
	if taskID == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	result, err := a.canceller.Cancel(r.Context(), cancel.CancellationRequest{
		TaskID:   taskID,
		PRNumber: pr.GetNumber(),
	})
	if err != nil {
		log.Printf("cancel: PR #%d closed, cancellation failed: %v", pr.GetNumber(), err)
		http.Error(w, "cancellation failed", http.StatusInternalServerError)
		return
	}

	log.Printf("cancel: PR #%d closed (merged=%v), reason=%s cancelled=%v", pr.GetNumber(), pr.GetMerged(), result.Reason, result.CancelledAgents)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}

// taskIDFromLabels extracts the "task:<id>" label GitHub carries on PRs
// and issues the controller manages. Returns "" if absent.
func taskIDFromLabels(labels []*github.Label) string {
	const prefix = "task:"
	for _, label := range labels {
		name := label.GetName()
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			return name[len(prefix):]
		}
	}
	return ""
}
