package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shipstream/notifier/internal/domain"
)

// EmailAdapter delivers through an HTTP email provider API (Postmark-style:
// POST a message, get back a 202 with a message id). The base URL is
// injected from config so tests can point at a local httptest server.
type EmailAdapter struct {
	baseURL    string
	httpClient *http.Client
}

func NewEmailAdapter(baseURL string, timeout time.Duration) *EmailAdapter {
	return &EmailAdapter{baseURL: baseURL, httpClient: newHTTPClient(timeout)}
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type providerResponse struct {
	MessageID string `json:"messageId"`
}

func (a *EmailAdapter) Send(ctx context.Context, p *domain.NotificationPayload) SendResult {
	resp, err := postJSON(ctx, a.httpClient, a.baseURL+"/messages", emailRequest{
		To:      p.Recipient,
		Subject: p.Subject,
		Body:    p.Body,
	}, http.StatusAccepted, http.StatusOK)
	if err != nil {
		return failure(err)
	}
	defer resp.Body.Close()

	var pr providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return failure(fmt.Errorf("decode response: %w", err))
	}
	return SendResult{Success: true, ProviderID: pr.MessageID}
}

// compile-time check that EmailAdapter implements Adapter
var _ Adapter = (*EmailAdapter)(nil)
