package template_test

import (
	"testing"

	"github.com/shipstream/notifier/internal/template"
)

func TestRender(t *testing.T) {
	data := map[string]any{
		"trackingNumber": "1Z999",
		"status":         "delivered",
		"count":          float64(3),
		"shipment": map[string]any{
			"carrier": "ups",
		},
		"signed": true,
	}

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"plain text", "no variables here", "no variables here"},
		{"simple substitution", "Shipment {{trackingNumber}} is {{status}}", "Shipment 1Z999 is delivered"},
		{"dot path", "via {{shipment.carrier}}", "via ups"},
		{"missing variable renders empty", "Hello {{recipient.name}}!", "Hello !"},
		{"number", "{{count}} packages", "3 packages"},
		{"bool", "signed: {{signed}}", "signed: true"},
		{"whitespace tolerated", "{{ status }}", "delivered"},
		{"conditional kept", "{{#if signed}}Signature on file.{{/if}}", "Signature on file."},
		{"conditional dropped", "{{#if missing}}never shown{{/if}}ok", "ok"},
		{"variable inside conditional", "{{#if status}}Now {{status}}.{{/if}}", "Now delivered."},
		{"variable inside dropped conditional", "{{#if missing}}{{trackingNumber}}{{/if}}", ""},
		{"unclosed block left as-is", "{{#if status}}dangling", "{{#if status}}dangling"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := template.Render(tc.tmpl, data)
			if got != tc.want {
				t.Fatalf("Render(%q) = %q, want %q", tc.tmpl, got, tc.want)
			}
		})
	}
}

func TestRender_NilData(t *testing.T) {
	got := template.Render("Hello {{name}}", nil)
	if got != "Hello " {
		t.Fatalf("expected missing data to render empty, got %q", got)
	}
}
