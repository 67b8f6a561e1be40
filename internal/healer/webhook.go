package healer

import (
	"encoding/json"
	"fmt"
	"time"
)

// AlertStatus is an Alertmanager alert's firing state.
type AlertStatus string

const (
	AlertFiring   AlertStatus = "firing"
	AlertResolved AlertStatus = "resolved"
)

// AlertmanagerAlert is a single alert from an Alertmanager webhook
// payload.
type AlertmanagerAlert struct {
	Fingerprint string            `json:"fingerprint"`
	Status      AlertStatus       `json:"status"`
	StartsAt    time.Time         `json:"startsAt"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
}

// ParseAlertmanagerAlert decodes a single alert from raw JSON.
func ParseAlertmanagerAlert(raw []byte) (*AlertmanagerAlert, error) {
	var alert AlertmanagerAlert
	if err := json.Unmarshal(raw, &alert); err != nil {
		return nil, fmt.Errorf("decode alertmanager alert: %w", err)
	}
	return &alert, nil
}

// WebhookPayload is the body Alertmanager posts to a configured webhook
// receiver: a batch of alerts sharing one notification.
type WebhookPayload struct {
	Receiver string              `json:"receiver"`
	Status   AlertStatus         `json:"status"`
	Alerts   []AlertmanagerAlert `json:"alerts"`
}

// ParseWebhookPayload decodes an Alertmanager webhook POST body.
func ParseWebhookPayload(raw []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode alertmanager webhook payload: %w", err)
	}
	return &payload, nil
}

// FiringAlerts returns only the alerts in the payload that are currently
// firing, filtering out resolved notifications the pipelines don't act
// on.
func (p *WebhookPayload) FiringAlerts() []AlertmanagerAlert {
	firing := make([]AlertmanagerAlert, 0, len(p.Alerts))
	for _, a := range p.Alerts {
		if a.IsFiring() {
			firing = append(firing, a)
		}
	}
	return firing
}

// IsFiring reports whether the alert is currently firing, as opposed to
// resolved.
func (a *AlertmanagerAlert) IsFiring() bool {
	return a.Status == AlertFiring
}

// Name returns the alert's alertname label.
func (a *AlertmanagerAlert) Name() string {
	return a.Labels["alertname"]
}

// Severity returns the alert's severity label.
func (a *AlertmanagerAlert) Severity() string {
	return a.Labels["severity"]
}

// Namespace returns the alert's namespace label, or "" if absent.
func (a *AlertmanagerAlert) Namespace() string {
	return a.Labels["namespace"]
}

// Pod returns the alert's pod label, or "" if absent.
func (a *AlertmanagerAlert) Pod() string {
	return a.Labels["pod"]
}

// ToFailure converts the alert into the normalised Failure shape the
// pipelines consume. Log content is filled in separately once fetched
// from the log store.
func (a *AlertmanagerAlert) ToFailure(source Source) Failure {
	return Failure{
		Source:       source,
		Fingerprint:  a.Fingerprint,
		Severity:     a.Severity(),
		Namespace:    a.Namespace(),
		PodName:      a.Pod(),
		WorkflowName: a.Name(),
		AlertName:    a.Name(),
		StartedAt:    a.StartsAt,
	}
}
