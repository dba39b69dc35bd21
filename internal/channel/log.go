package channel

import (
	"context"

	"go.uber.org/zap"

	"github.com/shipstream/notifier/internal/domain"
)

// LogAdapter writes notifications to the log instead of delivering them.
// Used in development and as the LOG channel's real adapter.
type LogAdapter struct {
	logger *zap.Logger
}

func NewLogAdapter(logger *zap.Logger) *LogAdapter {
	return &LogAdapter{logger: logger}
}

func (a *LogAdapter) Send(_ context.Context, p *domain.NotificationPayload) SendResult {
	a.logger.Info("notification delivered to log",
		zap.String("channel", string(p.Channel)),
		zap.String("recipient", p.Recipient),
		zap.String("subject", p.Subject),
		zap.String("body", p.Body),
		zap.String("rule_id", p.RuleID),
		zap.String("event_id", p.EventID))
	return SendResult{Success: true, ProviderID: "log"}
}

var _ Adapter = (*LogAdapter)(nil)
