package channel

import (
	"context"
	"net/http"
	"time"

	"github.com/shipstream/notifier/internal/domain"
)

// WebhookAdapter posts the whole notification payload to a customer-supplied
// URL. Unlike the other adapters, the recipient target is the destination
// URL itself.
type WebhookAdapter struct {
	httpClient *http.Client
}

func NewWebhookAdapter(timeout time.Duration) *WebhookAdapter {
	return &WebhookAdapter{httpClient: newHTTPClient(timeout)}
}

type webhookEnvelope struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
	RuleID  string `json:"rule_id"`
	EventID string `json:"event_id"`
}

func (a *WebhookAdapter) Send(ctx context.Context, p *domain.NotificationPayload) SendResult {
	resp, err := postJSON(ctx, a.httpClient, p.Recipient, webhookEnvelope{
		Subject: p.Subject,
		Body:    p.Body,
		RuleID:  p.RuleID,
		EventID: p.EventID,
	}, http.StatusOK, http.StatusAccepted, http.StatusNoContent)
	if err != nil {
		return failure(err)
	}
	resp.Body.Close()
	return SendResult{Success: true}
}

var _ Adapter = (*WebhookAdapter)(nil)
