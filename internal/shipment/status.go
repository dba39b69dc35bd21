package shipment

import (
	"strings"

	"github.com/shipstream/notifier/internal/domain"
)

// carrierStatusTable folds the raw status vocabulary of the supported
// carriers into the internal set. Keys are normalised (lowercase,
// underscores) before lookup.
var carrierStatusTable = map[string]domain.ShipmentStatus{
	"label_created":        domain.ShipmentPending,
	"pre_transit":          domain.ShipmentPending,
	"information_received": domain.ShipmentPending,

	"accepted":            domain.ShipmentInTransit,
	"picked_up":           domain.ShipmentInTransit,
	"in_transit":          domain.ShipmentInTransit,
	"arrived_at_facility": domain.ShipmentInTransit,
	"departed_facility":   domain.ShipmentInTransit,
	"customs_cleared":     domain.ShipmentInTransit,

	"out_for_delivery": domain.ShipmentOutForDelivery,

	"delivered":             domain.ShipmentDelivered,
	"delivered_to_agent":    domain.ShipmentDelivered,
	"picked_up_by_receiver": domain.ShipmentDelivered,
	"available_for_pickup":  domain.ShipmentDelivered,

	"exception":          domain.ShipmentException,
	"failed_attempt":     domain.ShipmentException,
	"delivery_failed":    domain.ShipmentException,
	"returned_to_sender": domain.ShipmentException,
	"damaged":            domain.ShipmentException,
	"held_at_customs":    domain.ShipmentException,
	"lost":               domain.ShipmentException,
}

// MapCarrierStatus classifies a raw carrier status into the internal
// vocabulary. Unknown statuses map to pending: an unrecognised value should
// not surface as a delivery exception to customers.
func MapCarrierStatus(raw string) domain.ShipmentStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")

	if status, ok := carrierStatusTable[key]; ok {
		return status
	}
	return domain.ShipmentPending
}
