package channel

import (
	"context"
	"net/http"
	"time"

	"github.com/shipstream/notifier/internal/domain"
)

// SlackAdapter posts to a Slack incoming webhook. The recipient target is
// the destination channel name; the webhook URL itself is workspace-level
// configuration.
type SlackAdapter struct {
	webhookURL string
	httpClient *http.Client
}

func NewSlackAdapter(webhookURL string, timeout time.Duration) *SlackAdapter {
	return &SlackAdapter{webhookURL: webhookURL, httpClient: newHTTPClient(timeout)}
}

type slackMessage struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

func (a *SlackAdapter) Send(ctx context.Context, p *domain.NotificationPayload) SendResult {
	text := p.Body
	if p.Subject != "" {
		text = "*" + p.Subject + "*\n" + p.Body
	}

	resp, err := postJSON(ctx, a.httpClient, a.webhookURL, slackMessage{
		Channel: p.Recipient,
		Text:    text,
	}, http.StatusOK)
	if err != nil {
		return failure(err)
	}
	resp.Body.Close()

	// Slack incoming webhooks return a bare "ok" body, no message id.
	return SendResult{Success: true}
}

var _ Adapter = (*SlackAdapter)(nil)
