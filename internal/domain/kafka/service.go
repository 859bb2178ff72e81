package kafka

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

type Service struct {
	repo   KafkaRepository
	events *events.Emitter
	log    zerolog.Logger
}

func NewService(repo KafkaRepository, em *events.Emitter, log zerolog.Logger) *Service {
	return &Service{repo: repo, events: em, log: log.With().Str("domain", "kafka").Logger()}
}

// Schema returns the event envelope with query parameters merged on top.
func (s *Service) Schema(query url.Values) document.Document {
	return document.Merge(baseEvent(), document.FromQuery(query))
}

// Config returns the full broker configuration, or only the named
// section. An unknown section yields nil.
func (s *Service) Config(section string) interface{} {
	cfg := document.Document{
		"topics":         topics(),
		"partitioning":   partitioning(),
		"consumerGroups": consumerGroups(),
		"monitoring":     monitoring(),
	}
	if section == "" {
		return cfg
	}
	if v, ok := cfg[section]; ok {
		return v
	}
	return nil
}

func (s *Service) Governance() document.Document {
	return document.Merge(document.Merge(schemaRegistry(), security()), retryPolicy())
}

// PublishEvent merges the payload onto a fresh envelope, stores it and
// hands it to the broker with the event type as routing key.
func (s *Service) PublishEvent(ctx context.Context, payload document.Document) (document.Document, bool, error) {
	envelope := events.New(ctx, "portal.event.v1", events.Subject{}, nil)
	evt := document.Merge(envelope, payload)
	evt["eventId"] = ident.FromValue("event", payload["eventId"])

	rec := &EventRecord{
		EventID:   evt.String("eventId", ""),
		EventType: evt.String("eventType", ""),
		Payload:   evt,
		Metadata:  evt.Map("metadata"),
	}
	created, err := s.repo.UpsertEvent(ctx, rec)
	if err != nil {
		return nil, false, err
	}
	s.events.Publish(ctx, evt)
	s.log.Debug().Str("event_id", rec.EventID).Str("event_type", rec.EventType).Msg("event published")
	return evt, created, nil
}

// DeadLetter parks a failed event.
func (s *Service) DeadLetter(ctx context.Context, payload document.Document) (document.Document, bool, error) {
	doc := document.Document{
		"dlqEventId":    ident.FromValue("dlq", payload["dlqEventId"]),
		"originalEvent": payload.Value("originalEvent", document.Document{}),
		"failureInfo": document.Merge(document.Document{
			"reason":     "unknown",
			"lastError":  "",
			"retryCount": 0,
			"failedAt":   isotime.NowISO(),
		}, payload.Map("failureInfo")),
		"routing": document.Merge(document.Document{
			"topic":         DeadLetterTopic,
			"originalTopic": "",
			"nextRetryAt":   nil,
		}, payload.Map("routing")),
	}

	d := &DeadLetter{
		DLQEventID:    doc.String("dlqEventId", ""),
		OriginalEvent: doc["originalEvent"],
		FailureInfo:   doc.Map("failureInfo"),
		Routing:       doc.Map("routing"),
	}
	created, err := s.repo.UpsertDeadLetter(ctx, d)
	if err != nil {
		return nil, false, err
	}
	s.log.Warn().Str("dlq_event_id", d.DLQEventID).
		Str("reason", d.FailureInfo.String("reason", "")).
		Msg("event dead-lettered")
	return doc, created, nil
}
