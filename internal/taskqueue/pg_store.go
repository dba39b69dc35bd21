package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shipstream/notifier/internal/domain"
)

type pgStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPgStore returns a Store backed by one of the two PostgreSQL queue
// tables. The table name comes from the domain.Queue enum, never from
// user input.
func NewPgStore(pool *pgxpool.Pool, queue domain.Queue) (Store, error) {
	if !queue.IsValid() {
		return nil, domain.ErrInvalidQueue
	}
	return &pgStore{pool: pool, table: string(queue)}, nil
}

const taskColumns = `id, partition_key, payload, status, attempts, max_attempts,
	dedupe_key, available_at, locked_at, last_error, created_at, updated_at`

func (s *pgStore) Enqueue(ctx context.Context, items []domain.EnqueueItem) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin enqueue: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// The conflict target matches the partial unique index on dedupe_key,
	// so a colliding item is absorbed without an error.
	query := fmt.Sprintf(`
		INSERT INTO %s
			(id, partition_key, payload, status, attempts, max_attempts,
			 dedupe_key, available_at, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', 0, $4, $5, $6, now(), now())
		ON CONFLICT (dedupe_key)
			WHERE dedupe_key IS NOT NULL AND status IN ('pending', 'processing')
			DO NOTHING`, s.table)

	ids := make([]string, 0, len(items))
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		maxAttempts := item.MaxAttempts
		if maxAttempts == 0 {
			maxAttempts = domain.DefaultMaxAttempts
		}
		availableAt := time.Now().UTC()
		if item.AvailableAt != nil {
			availableAt = item.AvailableAt.UTC()
		}

		id := uuid.New().String()
		tag, err := tx.Exec(ctx, query,
			id, item.Partition, item.Payload, maxAttempts, item.DedupeKey, availableAt)
		if err != nil {
			return nil, fmt.Errorf("insert task: %w", err)
		}
		if tag.RowsAffected() > 0 {
			ids = append(ids, id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit enqueue: %w", err)
	}
	return ids, nil
}

func (s *pgStore) Claim(ctx context.Context, partition string, opts ClaimOptions) ([]*domain.Task, error) {
	if partition == "" {
		return nil, domain.ErrInvalidPartition
	}
	opts = opts.withDefaults()

	// SKIP LOCKED makes concurrent claimers step over each other's rows
	// instead of blocking, so two workers can drain the same partition
	// without ever receiving the same task. The pushed-out available_at
	// doubles as the lease: a crashed worker's tasks resurface once the
	// visibility timeout lapses, with no heartbeat process required.
	query := fmt.Sprintf(`
		WITH claimable AS (
			SELECT id FROM %s
			WHERE partition_key = $1
			  AND status IN ('pending', 'failed', 'processing')
			  AND available_at <= now()
			  AND attempts < max_attempts
			ORDER BY available_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE %s t
		SET status = 'processing',
		    attempts = t.attempts + 1,
		    locked_at = now(),
		    available_at = now() + $3::interval,
		    updated_at = now()
		FROM claimable c
		WHERE t.id = c.id
		RETURNING `+taskColumnsPrefixed, s.table, s.table)

	rows, err := s.pool.Query(ctx, query, partition, opts.BatchSize, opts.VisibilityTimeout)
	if err != nil {
		return nil, fmt.Errorf("claim tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

const taskColumnsPrefixed = `t.id, t.partition_key, t.payload, t.status, t.attempts,
	t.max_attempts, t.dedupe_key, t.available_at, t.locked_at, t.last_error,
	t.created_at, t.updated_at`

func (s *pgStore) MarkCompleted(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'completed', locked_at = NULL, updated_at = now()
		WHERE id = ANY($1) AND status <> 'completed'`, s.table)

	if _, err := s.pool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (s *pgStore) MarkFailed(ctx context.Context, id string, cause string, retryAt *time.Time) error {
	next := time.Now().UTC().Add(DefaultRetryDelay)
	if retryAt != nil {
		next = retryAt.UTC()
	}

	// A task whose attempts are exhausted becomes terminally failed and
	// keeps its available_at untouched; otherwise it is rescheduled.
	// Completed is append-only terminal: a late failure report from a
	// worker whose lease lapsed must not resurrect an acknowledged task,
	// so the guard makes that report a no-op.
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
		    available_at = CASE WHEN attempts >= max_attempts THEN available_at ELSE $2 END,
		    last_error = $3,
		    locked_at = NULL,
		    updated_at = now()
		WHERE id = $1 AND status <> 'completed'`, s.table)

	tag, err := s.pool.Exec(ctx, query, id, next, cause)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		existsQuery := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, s.table)
		if err := s.pool.QueryRow(ctx, existsQuery, id).Scan(&exists); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, taskColumns, s.table)
	row := s.pool.QueryRow(ctx, query, id)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (s *pgStore) ListFailed(ctx context.Context, partition string, limit int) ([]*domain.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE status = 'failed' AND ($1 = '' OR partition_key = $1)
		ORDER BY updated_at DESC
		LIMIT $2`, taskColumns, s.table)

	rows, err := s.pool.Query(ctx, query, partition, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *pgStore) Depths(ctx context.Context) (map[domain.TaskStatus]int, error) {
	query := fmt.Sprintf(`SELECT status, COUNT(*) FROM %s GROUP BY status`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("queue depths: %w", err)
	}
	defer rows.Close()

	depths := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var status domain.TaskStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		depths[status] = count
	}
	return depths, rows.Err()
}

// ---- helpers ----

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID, &t.Partition, &t.Payload, &t.Status, &t.Attempts,
		&t.MaxAttempts, &t.DedupeKey, &t.AvailableAt, &t.LockedAt,
		&t.LastError, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	var result []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
