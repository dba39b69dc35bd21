package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shipstream/notifier/internal/domain"
)

func TestEnqueueItem_Validate(t *testing.T) {
	valid := domain.EnqueueItem{
		Partition: "shipment.status_changed",
		Payload:   json.RawMessage(`{"x":1}`),
	}

	t.Run("valid item passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty partition", func(t *testing.T) {
		i := valid
		i.Partition = ""
		if err := i.Validate(); err != domain.ErrInvalidPartition {
			t.Fatalf("expected ErrInvalidPartition, got %v", err)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		i := valid
		i.Payload = nil
		if err := i.Validate(); err != domain.ErrInvalidPayload {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	})

	t.Run("negative max attempts", func(t *testing.T) {
		i := valid
		i.MaxAttempts = -1
		if err := i.Validate(); err != domain.ErrInvalidMaxAttempts {
			t.Fatalf("expected ErrInvalidMaxAttempts, got %v", err)
		}
	})
}

func TestTask_Claimable(t *testing.T) {
	now := time.Now().UTC()
	base := domain.Task{
		Status:      domain.TaskPending,
		Attempts:    0,
		MaxAttempts: 5,
		AvailableAt: now.Add(-time.Second),
	}

	t.Run("pending and available", func(t *testing.T) {
		task := base
		if !task.Claimable(now) {
			t.Fatal("expected claimable")
		}
	})

	t.Run("available in the future", func(t *testing.T) {
		task := base
		task.AvailableAt = now.Add(time.Hour)
		if task.Claimable(now) {
			t.Fatal("expected not claimable before available_at")
		}
	})

	t.Run("completed never claimable", func(t *testing.T) {
		task := base
		task.Status = domain.TaskCompleted
		if task.Claimable(now) {
			t.Fatal("expected completed task not claimable")
		}
	})

	t.Run("attempts exhausted", func(t *testing.T) {
		task := base
		task.Attempts = 5
		if task.Claimable(now) {
			t.Fatal("expected exhausted task not claimable")
		}
	})

	t.Run("processing with lapsed lease", func(t *testing.T) {
		task := base
		task.Status = domain.TaskProcessing
		task.Attempts = 1
		if !task.Claimable(now) {
			t.Fatal("expected lapsed lease to be claimable")
		}
	})
}

func TestChannel_IsValid(t *testing.T) {
	for _, ch := range []domain.Channel{
		domain.ChannelEmail, domain.ChannelSMS, domain.ChannelSlack,
		domain.ChannelWebhook, domain.ChannelLog,
	} {
		if !ch.IsValid() {
			t.Fatalf("channel %q: expected valid", ch)
		}
	}
	if domain.Channel("CARRIER_PIGEON").IsValid() {
		t.Fatal("expected unknown channel to be invalid")
	}
}

func TestQueue_IsValid(t *testing.T) {
	if !domain.QueueEvents.IsValid() || !domain.QueueNotifications.IsValid() {
		t.Fatal("expected both queues to be valid")
	}
	if domain.Queue("dead_letter").IsValid() {
		t.Fatal("expected unknown queue to be invalid")
	}
}
