package shipment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shipstream/notifier/internal/domain"
)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository returns a Repository backed by PostgreSQL.
func NewPgRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Create(ctx context.Context, s *domain.Shipment) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = domain.ShipmentPending
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO shipments (id, tracking_number, carrier, status, reference, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.TrackingNumber, s.Carrier, s.Status, s.Reference, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "tracking_number") {
			return domain.ErrShipmentExists
		}
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

func (r *pgRepository) GetByTracking(ctx context.Context, trackingNumber string) (*domain.Shipment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tracking_number, carrier, status, COALESCE(reference, ''), created_at, updated_at
		FROM shipments WHERE tracking_number = $1`, trackingNumber)

	var s domain.Shipment
	err := row.Scan(&s.ID, &s.TrackingNumber, &s.Carrier, &s.Status, &s.Reference, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return &s, nil
}

func (r *pgRepository) UpdateStatus(ctx context.Context, id string, status domain.ShipmentStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE shipments SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update shipment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgRepository) InsertCarrierEvent(ctx context.Context, e *domain.CarrierEvent) (bool, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO shipment_events (id, shipment_id, raw_status, description, location, occurred_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
		ON CONFLICT (shipment_id, occurred_at, description) DO NOTHING`,
		e.ID, e.ShipmentID, e.RawStatus, e.Description, e.Location, e.OccurredAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert carrier event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
