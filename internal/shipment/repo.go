package shipment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shipstream/notifier/internal/domain"
)

// Repository persists shipments and their raw carrier events.
// The pgx implementation is in pg_repo.go; tests use MemoryRepository.
type Repository interface {
	Create(ctx context.Context, s *domain.Shipment) error
	GetByTracking(ctx context.Context, trackingNumber string) (*domain.Shipment, error)
	UpdateStatus(ctx context.Context, id string, status domain.ShipmentStatus) error

	// InsertCarrierEvent stores a raw event, deduplicating on the natural
	// key (shipment, occurred-at, description). Returns false when the
	// event was already recorded.
	InsertCarrierEvent(ctx context.Context, e *domain.CarrierEvent) (bool, error)
}

type eventKey struct {
	shipmentID  string
	occurredAt  int64
	description string
}

// MemoryRepository is the in-memory Repository used in unit tests.
type MemoryRepository struct {
	mu        sync.Mutex
	shipments map[string]*domain.Shipment // keyed by tracking number
	events    map[eventKey]bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		shipments: make(map[string]*domain.Shipment),
		events:    make(map[eventKey]bool),
	}
}

func (r *MemoryRepository) Create(_ context.Context, s *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.shipments[s.TrackingNumber]; exists {
		return domain.ErrShipmentExists
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	dup := *s
	r.shipments[s.TrackingNumber] = &dup
	return nil
}

func (r *MemoryRepository) GetByTracking(_ context.Context, trackingNumber string) (*domain.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shipments[trackingNumber]
	if !ok {
		return nil, domain.ErrNotFound
	}
	dup := *s
	return &dup, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, status domain.ShipmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.shipments {
		if s.ID == id {
			s.Status = status
			s.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *MemoryRepository) InsertCarrierEvent(_ context.Context, e *domain.CarrierEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := eventKey{e.ShipmentID, e.OccurredAt.Unix(), e.Description}
	if r.events[key] {
		return false, nil
	}
	r.events[key] = true
	return true, nil
}

var _ Repository = (*MemoryRepository)(nil)
