package rules

import (
	"context"

	"github.com/shipstream/notifier/internal/domain"
)

// RuleSource supplies notification rules to the evaluator. Rules are
// authored and edited by an external collaborator; the core only reads.
// The pgx implementation is in pg_source.go; tests use the in-memory
// MemorySource.
type RuleSource interface {
	ListEnabledByTrigger(ctx context.Context, trigger string) ([]*domain.NotificationRule, error)
}

// MemorySource is a fixed-slice RuleSource for tests.
type MemorySource struct {
	Rules []*domain.NotificationRule
}

func (s *MemorySource) ListEnabledByTrigger(_ context.Context, trigger string) ([]*domain.NotificationRule, error) {
	var matched []*domain.NotificationRule
	for _, r := range s.Rules {
		if r.Enabled && r.TriggerEvent == trigger {
			matched = append(matched, r)
		}
	}
	return matched, nil
}
