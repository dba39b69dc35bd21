package taskqueue_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shipstream/notifier/internal/domain"
	"github.com/shipstream/notifier/internal/taskqueue"
)

func item(partition string) domain.EnqueueItem {
	return domain.EnqueueItem{
		Partition: partition,
		Payload:   json.RawMessage(`{"k":"v"}`),
	}
}

func mustEnqueue(t *testing.T, s taskqueue.Store, items ...domain.EnqueueItem) []string {
	t.Helper()
	ids, err := s.Enqueue(context.Background(), items)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return ids
}

func TestEnqueueClaim_Basic(t *testing.T) {
	s := taskqueue.NewMemoryStore()
	ctx := context.Background()

	ids := mustEnqueue(t, s, item("EMAIL"))
	if len(ids) != 1 {
		t.Fatalf("expected 1 id, got %d", len(ids))
	}

	claimed, err := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{BatchSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 1 {
		t.Fatalf("expected 1 claimed task, got %d", len(claimed))
	}

	got := claimed[0]
	if got.Status != domain.TaskProcessing {
		t.Fatalf("expected status=processing, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", got.Attempts)
	}
	if got.LockedAt == nil {
		t.Fatal("expected locked_at to be set")
	}
	if !got.AvailableAt.After(time.Now()) {
		t.Fatal("expected available_at to be pushed into the future by the lease")
	}
}

func TestClaim_PartitionIsolation(t *testing.T) {
	s := taskqueue.NewMemoryStore()
	ctx := context.Background()

	mustEnqueue(t, s, item("EMAIL"), item("SMS"))

	claimed, err := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 1 || claimed[0].Partition != "EMAIL" {
		t.Fatalf("expected exactly the EMAIL task, got %v", claimed)
	}
}

func TestClaim_OldestAvailableFirst(t *testing.T) {
	s := taskqueue.NewMemoryStore()
	ctx := context.Background()

	older := time.Now().UTC().Add(-2 * time.Hour)
	newer := time.Now().UTC().Add(-time.Hour)

	late := item("EMAIL")
	late.AvailableAt = &newer
	early := item("EMAIL")
	early.AvailableAt = &older

	// Enqueue newest first to prove ordering comes from available_at.
	lateIDs := mustEnqueue(t, s, late)
	earlyIDs := mustEnqueue(t, s, early)

	claimed, err := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{BatchSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 1 || claimed[0].ID != earlyIDs[0] {
		t.Fatalf("expected oldest-ready task %s first, got %v", earlyIDs[0], claimed)
	}
	_ = lateIDs
}

func TestClaim_FutureTaskNotClaimable(t *testing.T) {
	s := taskqueue.NewMemoryStore()
	ctx := context.Background()

	future := time.Now().UTC().Add(time.Hour)
	it := item("EMAIL")
	it.AvailableAt = &future
	mustEnqueue(t, s, it)

	claimed, err := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 0 {
		t.Fatalf("expected no claimable tasks, got %d", len(claimed))
	}
}

// TestClaim_ConcurrentDisjoint drives N concurrent claimers at a queue with
// fewer eligible tasks than claimers want, and verifies that no task id is
// handed out twice and all eligible tasks are handed out exactly once.
func TestClaim_ConcurrentDisjoint(t *testing.T) {
	s := taskqueue.NewMemoryStore()
	ctx := context.Background()

	const eligible = 5
	items := make([]domain.EnqueueItem, eligible)
	for i := range items {
		items[i] = item("EMAIL")
	}
	mustEnqueue(t, s, items...)

	const claimers = 8
	results := make(chan []*domain.Task, claimers)

	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{BatchSize: 10})
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			results <- claimed
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	total := 0
	for batch := range results {
		for _, task := range batch {
			if seen[task.ID] {
				t.Fatalf("task %s claimed twice", task.ID)
			}
			seen[task.ID] = true
			total++
		}
	}
	if total != eligible {
		t.Fatalf("expected %d tasks claimed in total, got %d", eligible, total)
	}
}

func TestEnqueue_DedupeKeyIdempotent(t *testing.T) {
	s := taskqueue.NewMemoryStore()
	ctx := context.Background()

	key := "shipment-1Z1-delivered"
	first := item("shipment.status_changed")
	first.DedupeKey = &key
	second := item("shipment.status_changed")
	second.DedupeKey = &key

	ids1 := mustEnqueue(t, s, first)
	ids2 := mustEnqueue(t, s, second)

	if len(ids1) != 1 {
		t.Fatalf("first enqueue should insert, got %d ids", len(ids1))
	}
	if len(ids2) != 0 {
		t.Fatalf("second enqueue should be absorbed, got %d ids", len(ids2))
	}

	depths, _ := s.Depths(ctx)
	if depths[domain.TaskPending] != 1 {
		t.Fatalf("expected exactly 1 pending task, got %d", depths[domain.TaskPending])
	}
}

func TestEnqueue_DedupeKeyReusableAfterTerminal(t *testing.T) {
	s := taskqueue.NewMemoryStore()
	ctx := context.Background()

	key := "k1"
	it := item("EMAIL")
	it.DedupeKey = &key
	ids := mustEnqueue(t, s, it)

	claimed, _ := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{})
	if len(claimed) != 1 {
		t.Fatal("expected a claim")
	}
	if err := s.MarkCompleted(ctx, []string{ids[0]}); err != nil {
		t.Fatal(err)
	}

	// The key only guards non-terminal tasks; a completed task does not
	// block a fresh enqueue with the same key.
	again := item("EMAIL")
	again.DedupeKey = &key
	ids2 := mustEnqueue(t, s, again)
	if len(ids2) != 1 {
		t.Fatal("expected enqueue to succeed after the original task completed")
	}
}

func TestMarkCompleted_Idempotent(t *testing.T) {
	s := taskqueue.NewMemoryStore()
	ctx := context.Background()

	ids := mustEnqueue(t, s, item("EMAIL"))
	if _, err := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{}); err != nil {
		t.Fatal(err)
	}

	if err := s.MarkCompleted(ctx, ids); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkCompleted(ctx, ids); err != nil {
		t.Fatalf("second completion should be a no-op, got %v", err)
	}

	got, _ := s.Get(ctx, ids[0])
	if got.Status != domain.TaskCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.LockedAt != nil {
		t.Fatal("expected locked_at cleared on completion")
	}
}

func TestMarkFailed_RetryProgression(t *testing.T) {
	s := taskqueue.NewMemoryStore()
	ctx := context.Background()

	ids := mustEnqueue(t, s, item("EMAIL"))
	claimed, _ := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{})
	if len(claimed) != 1 {
		t.Fatal("expected a claim")
	}

	retryAt := time.Now().UTC().Add(30 * time.Second)
	if err := s.MarkFailed(ctx, ids[0], "provider timeout", &retryAt); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Get(ctx, ids[0])
	if got.Status != domain.TaskPending {
		t.Fatalf("expected pending after retryable failure, got %s", got.Status)
	}
	if !got.AvailableAt.Equal(retryAt) {
		t.Fatalf("expected available_at=%v, got %v", retryAt, got.AvailableAt)
	}
	if got.LastError == nil || *got.LastError != "provider timeout" {
		t.Fatalf("expected last_error recorded, got %v", got.LastError)
	}
}

func TestMarkFailed_ExhaustionIsTerminal(t *testing.T) {
	s := taskqueue.NewMemoryStore()
	ctx := context.Background()

	it := item("EMAIL")
	it.MaxAttempts = 5
	ids := mustEnqueue(t, s, it)

	// Five claim/fail cycles: the first four reschedule, the fifth lands
	// in the terminal failed status.
	past := time.Now().UTC().Add(-time.Second)
	for i := 0; i < 5; i++ {
		claimed, err := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(claimed) != 1 {
			t.Fatalf("cycle %d: expected a claim, got %d tasks", i, len(claimed))
		}
		if err := s.MarkFailed(ctx, ids[0], "boom", &past); err != nil {
			t.Fatal(err)
		}
	}

	got, _ := s.Get(ctx, ids[0])
	if got.Status != domain.TaskFailed {
		t.Fatalf("expected terminal failed, got %s", got.Status)
	}
	if got.Attempts != 5 {
		t.Fatalf("expected attempts=5, got %d", got.Attempts)
	}

	claimed, _ := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{})
	if len(claimed) != 0 {
		t.Fatal("terminally failed task must not be claimable")
	}

	failed, _ := s.ListFailed(ctx, "EMAIL", 10)
	if len(failed) != 1 || failed[0].ID != ids[0] {
		t.Fatal("expected the task to surface in the failed audit list")
	}
}

// TestLeaseExpiry_SelfHeal simulates a worker crash: a claimed task is never
// acknowledged, and after the visibility timeout lapses it becomes claimable
// again. Attempts advance only because of the second claim, not because time
// passed.
func TestLeaseExpiry_SelfHeal(t *testing.T) {
	s := taskqueue.NewMemoryStore()
	ctx := context.Background()

	mustEnqueue(t, s, item("EMAIL"))

	first, err := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{VisibilityTimeout: 30 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || first[0].Attempts != 1 {
		t.Fatalf("unexpected first claim: %v", first)
	}

	// Within the lease the task is invisible to other claimers.
	hidden, _ := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{})
	if len(hidden) != 0 {
		t.Fatal("leased task must not be reclaimable before the timeout")
	}

	time.Sleep(50 * time.Millisecond)

	second, err := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 1 {
		t.Fatal("expected the task to resurface after lease expiry")
	}
	if second[0].ID != first[0].ID {
		t.Fatal("expected the same task back")
	}
	if second[0].Attempts != 2 {
		t.Fatalf("expected attempts=2 after reclaim, got %d", second[0].Attempts)
	}
}

// TestMarkFailed_LateReportCannotResurrectCompleted interleaves two workers
// through a lapsed lease: A claims, its lease expires, B reclaims, A still
// acknowledges success, then B reports a failure. The late failure report
// must be a no-op; completed is append-only terminal, and flipping the task
// back to pending would schedule a duplicate delivery.
func TestMarkFailed_LateReportCannotResurrectCompleted(t *testing.T) {
	s := taskqueue.NewMemoryStore()
	ctx := context.Background()

	ids := mustEnqueue(t, s, item("EMAIL"))

	first, err := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{VisibilityTimeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatal("expected worker A to claim the task")
	}

	time.Sleep(30 * time.Millisecond)

	second, err := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 1 {
		t.Fatal("expected worker B to reclaim after the lease lapsed")
	}

	// Worker A's send actually went through; its ack lands first.
	if err := s.MarkCompleted(ctx, []string{ids[0]}); err != nil {
		t.Fatal(err)
	}

	// Worker B's send failed; its report arrives after the ack.
	retryAt := time.Now().UTC().Add(time.Second)
	if err := s.MarkFailed(ctx, ids[0], "provider timeout", &retryAt); err != nil {
		t.Fatalf("late failure report should be a no-op, got %v", err)
	}

	got, _ := s.Get(ctx, ids[0])
	if got.Status != domain.TaskCompleted {
		t.Fatalf("completed task was mutated: status=%s", got.Status)
	}
	if got.LastError != nil {
		t.Fatalf("completed task should keep no failure record, got %v", got.LastError)
	}

	claimed, _ := s.Claim(ctx, "EMAIL", taskqueue.ClaimOptions{})
	if len(claimed) != 0 {
		t.Fatal("acknowledged task must never be redelivered")
	}
}

func TestEnqueue_Validation(t *testing.T) {
	s := taskqueue.NewMemoryStore()

	tests := []struct {
		name string
		item domain.EnqueueItem
		want error
	}{
		{"empty partition", domain.EnqueueItem{Payload: json.RawMessage(`{}`)}, domain.ErrInvalidPartition},
		{"empty payload", domain.EnqueueItem{Partition: "EMAIL"}, domain.ErrInvalidPayload},
		{"negative max attempts", domain.EnqueueItem{Partition: "EMAIL", Payload: json.RawMessage(`{}`), MaxAttempts: -1}, domain.ErrInvalidMaxAttempts},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Enqueue(context.Background(), []domain.EnqueueItem{tc.item})
			if err != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
