package domain

import "errors"

// Sentinel errors used throughout the application.
// HTTP handlers translate these to status codes via a single mapError function.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidQueue       = errors.New("invalid queue: must be event_queue or notification_queue")
	ErrInvalidPartition   = errors.New("partition must not be empty")
	ErrInvalidPayload     = errors.New("payload must not be empty")
	ErrInvalidMaxAttempts = errors.New("max attempts must not be negative")
	ErrInvalidChannel     = errors.New("invalid channel: must be EMAIL, SMS, SLACK, WEBHOOK, or LOG")
	ErrInvalidTracking    = errors.New("tracking number must not be empty")
	ErrInvalidCarrier     = errors.New("carrier must not be empty")
	ErrShipmentExists     = errors.New("shipment already registered")
)
