package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

type Service struct {
	repo   NotificationRepository
	events *events.Emitter
	log    zerolog.Logger
}

func NewService(repo NotificationRepository, em *events.Emitter, log zerolog.Logger) *Service {
	return &Service{repo: repo, events: em, log: log.With().Str("domain", "notification").Logger()}
}

// Send records a notification. Nothing is delivered; the channel list
// describes what a delivery would look like.
func (s *Service) Send(ctx context.Context, payload document.Document) (document.Document, error) {
	now := isotime.NowISO()
	channels := document.EnsureList(payload["channels"], []interface{}{document.Document{
		"type":              "email",
		"status":            "queued",
		"estimatedDelivery": now,
	}})
	doc := document.Document{
		"notificationId": ident.FromValue("notif", payload["notificationId"]),
		"status":         payload.Value("status", "scheduled"),
		"channels":       channels,
		"scheduledAt":    payload.Value("scheduledAt", now),
	}

	m := &Message{
		NotificationID: doc.String("notificationId", ""),
		RecipientID:    payload.String("recipientId", ""),
		Template:       payload.String("template", ""),
		Status:         doc.String("status", ""),
		Channels:       channels,
		Data:           payload.Value("data", document.Document{}),
		ScheduledAt:    isotime.ParseDateTime(doc.String("scheduledAt", "")),
	}
	if _, err := s.repo.UpsertMessage(ctx, m); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, "notification.sent.v1", events.Subject{Type: "Notification", ID: m.NotificationID}, document.Document{
		"recipientId": m.RecipientID,
		"template":    m.Template,
		"channels":    len(channels),
	})
	return doc, nil
}

func (s *Service) CreateTemplate(ctx context.Context, payload document.Document) (document.Document, error) {
	doc := document.Document{
		"templateId": ident.FromValue("template", payload["templateId"]),
		"name":       payload.Value("name", "appointment_reminder"),
		"channels":   payload.Value("channels", document.Document{}),
		"variables":  document.EnsureList(payload["variables"], document.Strings("patientName")),
	}

	t := &Template{
		Name:       doc.String("name", ""),
		TemplateID: doc.String("templateId", ""),
		Channels:   doc["channels"],
		Variables:  doc.List("variables"),
	}
	created, err := s.repo.UpsertTemplate(ctx, t)
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("template", t.Name).Bool("created", created).Msg("notification template stored")
	return doc, nil
}

func (s *Service) Bulk(ctx context.Context, payload document.Document) (document.Document, error) {
	recipients := document.EnsureList(payload["recipients"], []interface{}{})
	doc := document.Document{
		"campaignName":   payload.Value("campaignName", "campaign"),
		"status":         payload.Value("status", "scheduled"),
		"scheduledAt":    payload.Value("scheduledAt", isotime.NowISO()),
		"recipientCount": len(recipients),
	}

	c := &Campaign{
		CampaignName: doc.String("campaignName", ""),
		TemplateName: payload.String("template", ""),
		Status:       doc.String("status", ""),
		Channels:     document.EnsureList(payload["channels"], []interface{}{}),
		Recipients:   recipients,
		ScheduledAt:  isotime.ParseDateTime(doc.String("scheduledAt", "")),
	}
	if _, err := s.repo.UpsertCampaign(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().Str("campaign", c.CampaignName).Int("recipients", len(recipients)).Msg("campaign scheduled")
	return doc, nil
}
