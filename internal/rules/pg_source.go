package rules

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shipstream/notifier/internal/domain"
)

type pgRuleSource struct {
	pool *pgxpool.Pool
}

// NewPgRuleSource returns a RuleSource reading notification_rules and
// rule_recipients from PostgreSQL.
func NewPgRuleSource(pool *pgxpool.Pool) RuleSource {
	return &pgRuleSource{pool: pool}
}

func (s *pgRuleSource) ListEnabledByTrigger(ctx context.Context, trigger string) ([]*domain.NotificationRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, trigger_event, filter, subject_template, body_template, enabled
		FROM notification_rules
		WHERE enabled AND trigger_event = $1
		ORDER BY created_at ASC`, trigger)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.NotificationRule
	byID := make(map[string]*domain.NotificationRule)
	var ids []string
	for rows.Next() {
		var r domain.NotificationRule
		if err := rows.Scan(&r.ID, &r.Name, &r.TriggerEvent, &r.Filter,
			&r.SubjectTemplate, &r.BodyTemplate, &r.Enabled); err != nil {
			return nil, err
		}
		rules = append(rules, &r)
		byID[r.ID] = &r
		ids = append(ids, r.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}

	recRows, err := s.pool.Query(ctx, `
		SELECT rule_id, channel, target, COALESCE(name, '')
		FROM rule_recipients
		WHERE rule_id = ANY($1)
		ORDER BY id ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("list rule recipients: %w", err)
	}
	defer recRows.Close()

	for recRows.Next() {
		var ruleID string
		var rec domain.Recipient
		if err := recRows.Scan(&ruleID, &rec.Channel, &rec.Target, &rec.Name); err != nil {
			return nil, err
		}
		if r, ok := byID[ruleID]; ok {
			r.Recipients = append(r.Recipients, rec)
		}
	}
	return rules, recRows.Err()
}
