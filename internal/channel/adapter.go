// Package channel routes rendered notifications to pluggable delivery
// adapters (email, SMS, Slack, webhook, or a logging adapter for
// development).
package channel

import (
	"context"

	"github.com/shipstream/notifier/internal/domain"
)

// SendResult is the structured outcome of one delivery attempt. Adapters
// fold their transport errors into Error instead of returning a Go error,
// so the dispatch loop has a single acknowledgement path: Success drives
// MarkCompleted, everything else drives MarkFailed.
type SendResult struct {
	Success    bool
	ProviderID string
	Error      string
}

func failure(err error) SendResult {
	return SendResult{Error: err.Error()}
}

// Adapter delivers one notification over a specific channel. Implementations
// must be safe for concurrent use; the dispatcher sends a whole batch in
// parallel.
type Adapter interface {
	Send(ctx context.Context, p *domain.NotificationPayload) SendResult
}
