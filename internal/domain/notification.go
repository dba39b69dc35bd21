package domain

import "encoding/json"

// Channel is the delivery mechanism for a rendered notification.
type Channel string

const (
	ChannelEmail   Channel = "EMAIL"
	ChannelSMS     Channel = "SMS"
	ChannelSlack   Channel = "SLACK"
	ChannelWebhook Channel = "WEBHOOK"
	ChannelLog     Channel = "LOG"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelSlack, ChannelWebhook, ChannelLog:
		return true
	}
	return false
}

// Recipient is one delivery target attached to a notification rule.
type Recipient struct {
	Channel Channel `json:"channel"`
	Target  string  `json:"target"`
	Name    string  `json:"name,omitempty"`
}

// NotificationRule maps a trigger event to a template and recipient set.
// Rules are authored out of band; the core only reads them.
//
// Filter is a flat equality predicate over dot-addressed payload paths,
// e.g. {"status": "delivered"}. A nil or malformed filter matches every
// event of the trigger type (fail open: a misconfigured rule should notify
// rather than silently suppress).
type NotificationRule struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	TriggerEvent    string          `json:"trigger_event"`
	Filter          json.RawMessage `json:"filter,omitempty"`
	SubjectTemplate string          `json:"subject_template"`
	BodyTemplate    string          `json:"body_template"`
	Enabled         bool            `json:"enabled"`
	Recipients      []Recipient     `json:"recipients"`
}

// NotificationPayload is the rendered, recipient-specific message placed on
// the notification queue. Trace fields tie the notification back to the rule
// and domain event that produced it.
type NotificationPayload struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Subject   string  `json:"subject,omitempty"`
	Body      string  `json:"body"`
	RuleID    string  `json:"rule_id"`
	EventID   string  `json:"event_id"`
}
