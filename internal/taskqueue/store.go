package taskqueue

import (
	"context"
	"time"

	"github.com/shipstream/notifier/internal/domain"
)

// Defaults applied when a caller leaves claim or retry options zero.
const (
	DefaultBatchSize         = 25
	DefaultVisibilityTimeout = 5 * time.Minute
	DefaultRetryDelay        = time.Minute
)

// ClaimOptions tunes a single Claim call.
type ClaimOptions struct {
	// BatchSize caps how many tasks one call may take ownership of.
	BatchSize int
	// VisibilityTimeout is the lease: a claimed task that is never
	// acknowledged becomes claimable again once this window lapses.
	// It must comfortably exceed the expected handler latency, otherwise
	// a slow worker's tasks get reclaimed and double-processed.
	VisibilityTimeout time.Duration
}

func (o ClaimOptions) withDefaults() ClaimOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.VisibilityTimeout <= 0 {
		o.VisibilityTimeout = DefaultVisibilityTimeout
	}
	return o
}

// Store is the durable queue protocol. Two instances exist per process,
// one over event_queue and one over notification_queue.
//
// The postgres implementation is in pg_store.go; tests run against the
// in-memory implementation in memory_store.go, which honours the same
// claim and dedupe semantics.
type Store interface {
	// Enqueue inserts the items as pending tasks and returns the ids of
	// the rows actually created. An item whose DedupeKey collides with an
	// existing non-terminal task is silently skipped, so producers with
	// at-least-once triggers can enqueue blindly.
	Enqueue(ctx context.Context, items []domain.EnqueueItem) ([]string, error)

	// Claim atomically takes ownership of up to BatchSize claimable tasks
	// in the partition, oldest available_at first. Claimed tasks move to
	// processing, attempts is incremented, and available_at is pushed to
	// now+VisibilityTimeout. Concurrent claimers never receive the same
	// task and never block on each other's rows.
	Claim(ctx context.Context, partition string, opts ClaimOptions) ([]*domain.Task, error)

	// MarkCompleted finalises the tasks. Completing an already-completed
	// id is a no-op.
	MarkCompleted(ctx context.Context, ids []string) error

	// MarkFailed records the failure. While attempts remain the task goes
	// back to pending with available_at set to retryAt (nil means
	// now+DefaultRetryDelay); once attempts are exhausted it lands in the
	// terminal failed status and is never scheduled again.
	MarkFailed(ctx context.Context, id string, cause string, retryAt *time.Time) error

	// Get fetches a single task by id.
	Get(ctx context.Context, id string) (*domain.Task, error)

	// ListFailed returns terminally failed tasks for triage, most recent
	// first. An empty partition matches all partitions.
	ListFailed(ctx context.Context, partition string, limit int) ([]*domain.Task, error)

	// Depths counts tasks per status across the whole queue.
	Depths(ctx context.Context) (map[domain.TaskStatus]int, error)
}
