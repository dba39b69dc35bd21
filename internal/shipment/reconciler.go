// Package shipment reconciles raw carrier tracking data against the
// persisted shipment state and emits domain events on status transitions.
package shipment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shipstream/notifier/internal/domain"
	"github.com/shipstream/notifier/internal/taskqueue"
)

// Outcome reports what one tracking update did.
type Outcome struct {
	Shipment      *domain.Shipment `json:"shipment"`
	Duplicate     bool             `json:"duplicate"`
	StatusChanged bool             `json:"status_changed"`
	EventEmitted  bool             `json:"event_emitted"`
}

// Reconciler is the event source of the notification pipeline: it
// classifies carrier statuses, detects transitions, and feeds the event
// queue.
type Reconciler struct {
	repo   Repository
	events taskqueue.Store
	logger *zap.Logger
}

func NewReconciler(repo Repository, events taskqueue.Store, logger *zap.Logger) *Reconciler {
	return &Reconciler{repo: repo, events: events, logger: logger}
}

// Process ingests one tracking update. The carrier event is recorded with
// natural-key dedup first, so an upstream webhook redelivery is absorbed
// before it can re-trigger a transition. Only an actual status change
// (previous persisted status != freshly mapped status) emits a domain
// event; repeated polls of an unchanged shipment produce nothing.
func (r *Reconciler) Process(ctx context.Context, update domain.TrackingUpdate) (*Outcome, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if update.OccurredAt.IsZero() {
		update.OccurredAt = time.Now().UTC()
	}

	ship, err := r.repo.GetByTracking(ctx, update.TrackingNumber)
	if err != nil {
		return nil, fmt.Errorf("lookup shipment %s: %w", update.TrackingNumber, err)
	}

	inserted, err := r.repo.InsertCarrierEvent(ctx, &domain.CarrierEvent{
		ShipmentID:  ship.ID,
		RawStatus:   update.RawStatus,
		Description: update.Description,
		Location:    update.Location,
		OccurredAt:  update.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		r.logger.Debug("duplicate carrier event absorbed",
			zap.String("tracking_number", update.TrackingNumber),
			zap.Time("occurred_at", update.OccurredAt))
		return &Outcome{Shipment: ship, Duplicate: true}, nil
	}

	newStatus := MapCarrierStatus(update.RawStatus)
	if newStatus == ship.Status {
		return &Outcome{Shipment: ship}, nil
	}

	previous := ship.Status
	if err := r.repo.UpdateStatus(ctx, ship.ID, newStatus); err != nil {
		return nil, err
	}
	ship.Status = newStatus

	data, err := json.Marshal(domain.StatusChangedData{
		ShipmentID:     ship.ID,
		TrackingNumber: ship.TrackingNumber,
		Carrier:        ship.Carrier,
		Status:         newStatus,
		PreviousStatus: previous,
		Description:    update.Description,
		Location:       update.Location,
		OccurredAt:     update.OccurredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal status event: %w", err)
	}

	// The dedupe key pins one event per shipment transition instant, so
	// even a crash between UpdateStatus and Enqueue followed by a retried
	// update cannot double-emit.
	dedupe := fmt.Sprintf("%s:%s:%s:%d",
		domain.EventShipmentStatusChanged, ship.ID, newStatus, update.OccurredAt.Unix())

	if _, err := r.events.Enqueue(ctx, []domain.EnqueueItem{{
		Partition: domain.EventShipmentStatusChanged,
		Payload:   data,
		DedupeKey: &dedupe,
	}}); err != nil {
		return nil, fmt.Errorf("enqueue status event: %w", err)
	}

	r.logger.Info("shipment status changed",
		zap.String("tracking_number", ship.TrackingNumber),
		zap.String("previous", string(previous)),
		zap.String("status", string(newStatus)))

	return &Outcome{Shipment: ship, StatusChanged: true, EventEmitted: true}, nil
}
