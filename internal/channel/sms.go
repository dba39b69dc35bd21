package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shipstream/notifier/internal/domain"
)

// SMSAdapter delivers through an HTTP SMS gateway. Subjects do not exist in
// SMS; only the rendered body is sent.
type SMSAdapter struct {
	baseURL    string
	httpClient *http.Client
}

func NewSMSAdapter(baseURL string, timeout time.Duration) *SMSAdapter {
	return &SMSAdapter{baseURL: baseURL, httpClient: newHTTPClient(timeout)}
}

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (a *SMSAdapter) Send(ctx context.Context, p *domain.NotificationPayload) SendResult {
	resp, err := postJSON(ctx, a.httpClient, a.baseURL+"/sms", smsRequest{
		To:      p.Recipient,
		Message: p.Body,
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

var _ Adapter = (*SMSAdapter)(nil)
