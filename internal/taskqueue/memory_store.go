package taskqueue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shipstream/notifier/internal/domain"
)

// MemoryStore is a mutex-guarded, in-memory implementation of Store used in
// unit tests. It mirrors the postgres semantics: dedupe on non-terminal
// tasks, oldest-available-first claiming, and lease expiry via available_at.
// No mock-generation library needed.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*domain.Task)}
}

func (s *MemoryStore) Enqueue(_ context.Context, items []domain.EnqueueItem) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var ids []string
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if item.DedupeKey != nil && s.hasNonTerminal(*item.DedupeKey) {
			continue
		}

		maxAttempts := item.MaxAttempts
		if maxAttempts == 0 {
			maxAttempts = domain.DefaultMaxAttempts
		}
		availableAt := now
		if item.AvailableAt != nil {
			availableAt = item.AvailableAt.UTC()
		}

		t := &domain.Task{
			ID:          uuid.New().String(),
			Partition:   item.Partition,
			Payload:     item.Payload,
			Status:      domain.TaskPending,
			MaxAttempts: maxAttempts,
			DedupeKey:   item.DedupeKey,
			AvailableAt: availableAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.tasks[t.ID] = t
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (s *MemoryStore) hasNonTerminal(dedupeKey string) bool {
	for _, t := range s.tasks {
		if t.DedupeKey != nil && *t.DedupeKey == dedupeKey &&
			(t.Status == domain.TaskPending || t.Status == domain.TaskProcessing) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) Claim(_ context.Context, partition string, opts ClaimOptions) ([]*domain.Task, error) {
	if partition == "" {
		return nil, domain.ErrInvalidPartition
	}
	opts = opts.withDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var eligible []*domain.Task
	for _, t := range s.tasks {
		if t.Partition != partition || t.AvailableAt.After(now) || t.Attempts >= t.MaxAttempts {
			continue
		}
		// A processing task whose available_at has passed is a lapsed
		// lease and goes back into the pool.
		switch t.Status {
		case domain.TaskPending, domain.TaskFailed, domain.TaskProcessing:
			eligible = append(eligible, t)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].AvailableAt.Before(eligible[j].AvailableAt)
	})
	if len(eligible) > opts.BatchSize {
		eligible = eligible[:opts.BatchSize]
	}

	claimed := make([]*domain.Task, 0, len(eligible))
	for _, t := range eligible {
		locked := now
		t.Status = domain.TaskProcessing
		t.Attempts++
		t.LockedAt = &locked
		t.AvailableAt = now.Add(opts.VisibilityTimeout)
		t.UpdatedAt = now
		claimed = append(claimed, copyTask(t))
	}
	return claimed, nil
}

func (s *MemoryStore) MarkCompleted(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, id := range ids {
		t, ok := s.tasks[id]
		if !ok || t.Status == domain.TaskCompleted {
			continue
		}
		t.Status = domain.TaskCompleted
		t.LockedAt = nil
		t.UpdatedAt = now
	}
	return nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, id string, cause string, retryAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	// Completed is append-only terminal; a late failure report from a
	// lapsed lease is a no-op.
	if t.Status == domain.TaskCompleted {
		return nil
	}

	now := time.Now().UTC()
	t.LastError = &cause
	t.LockedAt = nil
	t.UpdatedAt = now

	if t.Attempts >= t.MaxAttempts {
		t.Status = domain.TaskFailed
		return nil
	}
	next := now.Add(DefaultRetryDelay)
	if retryAt != nil {
		next = retryAt.UTC()
	}
	t.Status = domain.TaskPending
	t.AvailableAt = next
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyTask(t), nil
}

func (s *MemoryStore) ListFailed(_ context.Context, partition string, limit int) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	var failed []*domain.Task
	for _, t := range s.tasks {
		if t.Status != domain.TaskFailed {
			continue
		}
		if partition != "" && t.Partition != partition {
			continue
		}
		failed = append(failed, copyTask(t))
	}
	sort.Slice(failed, func(i, j int) bool {
		return failed[i].UpdatedAt.After(failed[j].UpdatedAt)
	})
	if len(failed) > limit {
		failed = failed[:limit]
	}
	return failed, nil
}

func (s *MemoryStore) Depths(_ context.Context) (map[domain.TaskStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	depths := make(map[domain.TaskStatus]int)
	for _, t := range s.tasks {
		depths[t.Status]++
	}
	return depths, nil
}

func copyTask(t *domain.Task) *domain.Task {
	dup := *t
	if t.DedupeKey != nil {
		k := *t.DedupeKey
		dup.DedupeKey = &k
	}
	if t.LockedAt != nil {
		ts := *t.LockedAt
		dup.LockedAt = &ts
	}
	if t.LastError != nil {
		e := *t.LastError
		dup.LastError = &e
	}
	dup.Payload = append([]byte(nil), t.Payload...)
	return &dup
}

// compile-time check that MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
