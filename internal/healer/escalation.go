package healer

import (
	"context"
	"fmt"
	"time"

	goslack "github.com/slack-go/slack"
)

// EscalationNotifier posts a message to a Slack channel when a
// remediation's retries exceed the configured limit.
type EscalationNotifier struct {
	api       *goslack.Client
	channelID string
	timeout   time.Duration
}

// NewEscalationNotifier builds a notifier posting to channelID using
// token.
func NewEscalationNotifier(token, channelID string) *EscalationNotifier {
	return &EscalationNotifier{
		api:       goslack.New(token),
		channelID: channelID,
		timeout:   10 * time.Second,
	}
}

// Escalate posts a message summarising a failed remediation that
// exhausted its retries.
func (n *EscalationNotifier) Escalate(ctx context.Context, failure Failure, record EscalationRecord) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	text := fmt.Sprintf(
		":rotating_light: Remediation escalation: *%s* (%s) failed after %d attempts in %s.\nReason: %s",
		failureTitle(failure), record.FailureKind, record.Attempts, failure.Namespace, record.Reason,
	)

	_, _, err := n.api.PostMessageContext(ctx, n.channelID, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting escalation to slack: %w", err)
	}
	return nil
}
