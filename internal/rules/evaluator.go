// Package rules turns domain events into concrete notification payloads by
// matching configured rules and rendering their templates.
package rules

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/shipstream/notifier/internal/domain"
	"github.com/shipstream/notifier/internal/taskqueue"
	"github.com/shipstream/notifier/internal/template"
)

// Result reports what one evaluation produced, for logs and metrics.
type Result struct {
	RulesMatched        int `json:"rules_matched"`
	NotificationsQueued int `json:"notifications_queued"`
}

// Evaluator matches domain events against notification rules and enqueues
// one rendered payload per matching recipient onto the notification queue.
type Evaluator struct {
	source        RuleSource
	notifications taskqueue.Store
	logger        *zap.Logger
}

func NewEvaluator(source RuleSource, notifications taskqueue.Store, logger *zap.Logger) *Evaluator {
	return &Evaluator{source: source, notifications: notifications, logger: logger}
}

// Evaluate expands the event into notification tasks. A store error aborts
// the call; anything wrong with an individual rule or recipient is logged
// and skipped so one bad rule never suppresses the rest.
//
// The dedupe key (event, rule, channel, target) makes the whole pipeline
// safe to replay: re-delivering the same domain event produces no second
// notification for a recipient while the first is still in flight.
func (e *Evaluator) Evaluate(ctx context.Context, eventID, trigger string, data json.RawMessage) (Result, error) {
	var result Result

	matched, err := e.source.ListEnabledByTrigger(ctx, trigger)
	if err != nil {
		return result, fmt.Errorf("load rules for %q: %w", trigger, err)
	}
	if len(matched) == 0 {
		return result, nil
	}

	payload := make(map[string]any)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			e.logger.Warn("event payload is not a JSON object, templates will render empty",
				zap.String("event_id", eventID), zap.Error(err))
			payload = map[string]any{}
		}
	}

	var items []domain.EnqueueItem
	for _, rule := range matched {
		if !matchesFilter(rule.Filter, payload) {
			continue
		}
		result.RulesMatched++

		subject := template.Render(rule.SubjectTemplate, payload)
		body := template.Render(rule.BodyTemplate, payload)

		for _, rec := range rule.Recipients {
			if !rec.Channel.IsValid() {
				e.logger.Warn("skipping recipient with unknown channel",
					zap.String("rule_id", rule.ID),
					zap.String("channel", string(rec.Channel)))
				continue
			}

			notification := domain.NotificationPayload{
				Channel:   rec.Channel,
				Recipient: rec.Target,
				Subject:   subject,
				Body:      body,
				RuleID:    rule.ID,
				EventID:   eventID,
			}
			raw, err := json.Marshal(notification)
			if err != nil {
				e.logger.Error("marshal notification payload",
					zap.String("rule_id", rule.ID), zap.Error(err))
				continue
			}

			dedupe := fmt.Sprintf("%s:%s:%s:%s", eventID, rule.ID, rec.Channel, rec.Target)
			items = append(items, domain.EnqueueItem{
				Partition: string(rec.Channel),
				Payload:   raw,
				DedupeKey: &dedupe,
			})
		}
	}

	if len(items) == 0 {
		return result, nil
	}

	ids, err := e.notifications.Enqueue(ctx, items)
	if err != nil {
		return result, fmt.Errorf("enqueue notifications: %w", err)
	}
	result.NotificationsQueued = len(ids)

	e.logger.Info("event evaluated",
		zap.String("event_id", eventID),
		zap.String("trigger", trigger),
		zap.Int("rules_matched", result.RulesMatched),
		zap.Int("notifications_queued", result.NotificationsQueued))
	return result, nil
}
