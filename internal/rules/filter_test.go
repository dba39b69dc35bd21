package rules

import (
	"encoding/json"
	"testing"
)

func TestMatchesFilter(t *testing.T) {
	payload := map[string]any{
		"status":         "delivered",
		"trackingNumber": "1Z1",
		"count":          float64(2),
		"shipment": map[string]any{
			"carrier": "ups",
		},
	}

	tests := []struct {
		name   string
		filter string
		want   bool
	}{
		{"nil filter matches", "", true},
		{"empty object matches", `{}`, true},
		{"equality match", `{"status":"delivered"}`, true},
		{"equality mismatch", `{"status":"in_transit"}`, false},
		{"multiple keys all match", `{"status":"delivered","trackingNumber":"1Z1"}`, true},
		{"multiple keys one mismatch", `{"status":"delivered","trackingNumber":"9X9"}`, false},
		{"dot path match", `{"shipment.carrier":"ups"}`, true},
		{"dot path mismatch", `{"shipment.carrier":"fedex"}`, false},
		{"missing path never matches", `{"nope.deep":"x"}`, false},
		{"number equality", `{"count":2}`, true},
		{"malformed filter fails open", `not json at all`, true},
		{"non-object filter fails open", `["status"]`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var filter json.RawMessage
			if tc.filter != "" {
				filter = json.RawMessage(tc.filter)
			}
			if got := matchesFilter(filter, payload); got != tc.want {
				t.Fatalf("matchesFilter(%q) = %v, want %v", tc.filter, got, tc.want)
			}
		})
	}
}
