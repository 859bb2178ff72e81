package notification

import "time"

// Message maps to notification_messages.
type Message struct {
	NotificationID string
	RecipientID    string
	Template       string
	Status         string
	Channels       []interface{}
	Data           interface{}
	ScheduledAt    *time.Time
}

// Template maps to notification_templates, keyed by name.
type Template struct {
	Name       string
	TemplateID string
	Channels   interface{}
	Variables  []interface{}
}

// Campaign maps to notification_campaigns, keyed by campaign name.
type Campaign struct {
	CampaignName string
	TemplateName string
	Status       string
	Channels     []interface{}
	Recipients   []interface{}
	ScheduledAt  *time.Time
}
