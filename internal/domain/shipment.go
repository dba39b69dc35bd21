package domain

import "time"

// ShipmentStatus is the internal status vocabulary. External carrier
// statuses are folded into this fixed set before any comparison happens.
type ShipmentStatus string

const (
	ShipmentPending        ShipmentStatus = "pending"
	ShipmentInTransit      ShipmentStatus = "in_transit"
	ShipmentOutForDelivery ShipmentStatus = "out_for_delivery"
	ShipmentDelivered      ShipmentStatus = "delivered"
	ShipmentException      ShipmentStatus = "exception"
)

// Shipment is the tracked entity whose status transitions drive
// notification events.
type Shipment struct {
	ID             string         `json:"id"`
	TrackingNumber string         `json:"tracking_number"`
	Carrier        string         `json:"carrier"`
	Status         ShipmentStatus `json:"status"`
	Reference      string         `json:"reference,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// CarrierEvent is one raw tracking event as reported by a carrier webhook
// or poll. The triple (ShipmentID, OccurredAt, Description) is the natural
// key used to absorb at-least-once redelivery from upstream.
type CarrierEvent struct {
	ID          string    `json:"id"`
	ShipmentID  string    `json:"shipment_id"`
	RawStatus   string    `json:"raw_status"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrackingUpdate is the inbound payload from the carrier-facing boundary.
type TrackingUpdate struct {
	TrackingNumber string    `json:"tracking_number"`
	RawStatus      string    `json:"status"`
	Description    string    `json:"description"`
	Location       string    `json:"location,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (u *TrackingUpdate) Validate() error {
	if u.TrackingNumber == "" {
		return ErrInvalidTracking
	}
	return nil
}

// EventShipmentStatusChanged is the topic emitted on every detected
// status transition.
const EventShipmentStatusChanged = "shipment.status_changed"

// StatusChangedData is the event-queue payload for a status transition.
type StatusChangedData struct {
	ShipmentID     string         `json:"shipment_id"`
	TrackingNumber string         `json:"trackingNumber"`
	Carrier        string         `json:"carrier"`
	Status         ShipmentStatus `json:"status"`
	PreviousStatus ShipmentStatus `json:"previousStatus"`
	Description    string         `json:"description,omitempty"`
	Location       string         `json:"location,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}
