package domain

import (
	"encoding/json"
	"time"
)

// Queue identifies one of the two durable queue tables. The value doubles
// as the table name.
type Queue string

const (
	QueueEvents        Queue = "event_queue"
	QueueNotifications Queue = "notification_queue"
)

func (q Queue) IsValid() bool {
	return q == QueueEvents || q == QueueNotifications
}

// TaskStatus is the lifecycle state of a queued task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// DefaultMaxAttempts is applied when an enqueued item does not specify its
// own attempt budget.
const DefaultMaxAttempts = 5

// Task is one unit of work on a durable queue. Partition scopes claiming:
// on the event queue it is the event topic, on the notification queue it is
// the delivery channel.
type Task struct {
	ID          string          `json:"id"`
	Partition   string          `json:"partition"`
	Payload     json.RawMessage `json:"payload"`
	Status      TaskStatus      `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	DedupeKey   *string         `json:"dedupe_key,omitempty"`
	AvailableAt time.Time       `json:"available_at"`
	LockedAt    *time.Time      `json:"locked_at,omitempty"`
	LastError   *string         `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Claimable reports whether the task is eligible for claiming at the given
// instant. A processing task whose available_at has passed counts as
// claimable: its lease has lapsed.
func (t *Task) Claimable(now time.Time) bool {
	if t.Status == TaskCompleted {
		return false
	}
	return !t.AvailableAt.After(now) && t.Attempts < t.MaxAttempts
}

// EnqueueItem is the producer-side request to place a task on a queue.
type EnqueueItem struct {
	Partition string          `json:"partition"`
	Payload   json.RawMessage `json:"payload"`
	// DedupeKey, when set, suppresses the insert if a non-terminal task
	// with the same key already exists.
	DedupeKey *string `json:"dedupe_key,omitempty"`
	// AvailableAt defers the task; nil means immediately claimable.
	AvailableAt *time.Time `json:"available_at,omitempty"`
	// MaxAttempts of 0 means DefaultMaxAttempts.
	MaxAttempts int `json:"max_attempts,omitempty"`
}

func (i *EnqueueItem) Validate() error {
	if i.Partition == "" {
		return ErrInvalidPartition
	}
	if len(i.Payload) == 0 {
		return ErrInvalidPayload
	}
	if i.MaxAttempts < 0 {
		return ErrInvalidMaxAttempts
	}
	return nil
}
