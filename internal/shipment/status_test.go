package shipment_test

import (
	"testing"

	"github.com/shipstream/notifier/internal/domain"
	"github.com/shipstream/notifier/internal/shipment"
)

func TestMapCarrierStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.ShipmentStatus
	}{
		{"delivered", domain.ShipmentDelivered},
		{"in_transit", domain.ShipmentInTransit},
		{"out_for_delivery", domain.ShipmentOutForDelivery},
		{"exception", domain.ShipmentException},
		{"label_created", domain.ShipmentPending},
		// normalisation
		{"Out For Delivery", domain.ShipmentOutForDelivery},
		{"  DELIVERED  ", domain.ShipmentDelivered},
		{"failed-attempt", domain.ShipmentException},
		// unknown statuses default to the safe side
		{"quantum_tunnelled", domain.ShipmentPending},
		{"", domain.ShipmentPending},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			if got := shipment.MapCarrierStatus(tc.raw); got != tc.want {
				t.Fatalf("MapCarrierStatus(%q) = %s, want %s", tc.raw, got, tc.want)
			}
		})
	}
}
