package hl7

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/hl7v2"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

type Service struct {
	repo   HL7Repository
	events *events.Emitter
	log    zerolog.Logger
}

func NewService(repo HL7Repository, em *events.Emitter, log zerolog.Logger) *Service {
	return &Service{repo: repo, events: em, log: log.With().Str("domain", "hl7").Logger()}
}

// Ingest stores a message and returns the merged ingest document and
// whether a new message row was created.
func (s *Service) Ingest(ctx context.Context, overrides document.Document, raw []byte) (document.Document, bool, error) {
	var parsed *hl7v2.Message
	if hl7v2.Looks(raw) {
		m, err := hl7v2.Parse(raw)
		if err != nil {
			s.log.Debug().Err(err).Msg("raw body looks like HL7 but did not parse")
		} else {
			parsed = m
		}
	}

	doc := document.Merge(ingestTemplate(parsed), overrides)
	rawMessage := strings.TrimSpace(string(raw))
	if rawMessage == "" {
		rawMessage = overrides.NonEmpty("content", overrides.String("rawMessage", ""))
	}
	if !document.Truthy(doc["timestamp"]) {
		doc["timestamp"] = isotime.NowISO()
	}
	doc["messageId"] = ident.FromValue("msg", doc["messageId"])

	rec := toMessage(doc, rawMessage)
	created, err := s.repo.UpsertMessage(ctx, rec)
	if err != nil {
		return nil, false, err
	}
	s.log.Debug().Str("message_id", rec.MessageID).Bool("created", created).Msg("hl7 message stored")

	doc["messageId"] = rec.MessageID
	doc["correlationId"] = rec.CorrelationID
	doc["errors"] = rec.Errors

	data := document.Document{"status": rec.Status, "resourceCount": len(rec.FHIRResources)}
	if parsed != nil {
		data["messageType"] = parsed.Type
		data["sendingApplication"] = parsed.SendingApp
	}
	s.events.Emit(ctx, "hl7.message.received.v1", events.Subject{Type: "HL7Message", ID: rec.MessageID}, data)
	for _, r := range rec.FHIRResources {
		res, ok := document.AsMap(r)
		if !ok {
			continue
		}
		s.events.Emit(ctx, "fhir.resource.created.v1",
			events.Subject{Type: res.String("resourceType", ""), ID: res.String("id", "")},
			document.Document{"action": "created", "sourceMessageId": rec.MessageID})
	}
	return doc, created, nil
}

// ParseStatus reports on a stored message. Query parameters status and
// resourcesCreated override the stored values.
func (s *Service) ParseStatus(ctx context.Context, messageID string, query url.Values) (document.Document, error) {
	rec, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	processedAt := isotime.Format(rec.ProcessedAt)
	if processedAt == "" {
		processedAt = isotime.NowISO()
	}
	status := rec.Status
	if query.Has("status") {
		status = query.Get("status")
	}
	resourcesCreated := len(rec.FHIRResources)
	if n, ok := document.ToInt(query.Get("resourcesCreated")); ok {
		resourcesCreated = n
	}
	errs := rec.Errors
	if errs == nil {
		errs = []interface{}{}
	}

	return document.Document{
		"messageId":        rec.MessageID,
		"status":           status,
		"processedAt":      processedAt,
		"resourcesCreated": resourcesCreated,
		"errors":           errs,
	}, nil
}

// Batch records a batch submission. Processing itself is not simulated.
func (s *Service) Batch(ctx context.Context, overrides document.Document) (document.Document, error) {
	doc := document.Document{
		"batchId":        ident.FromValue("batch", overrides["batchId"]),
		"totalMessages":  overrides.Value("totalMessages", len(overrides.List("messages"))),
		"processed":      overrides.Value("processed", 0),
		"failed":         overrides.Value("failed", 0),
		"processingTime": overrides.Value("processingTime", "0s"),
		"status":         overrides.Value("status", "pending"),
	}

	b := &Batch{
		BatchID: doc.String("batchId", ""),
		Status:  doc.String("status", "pending"),
		Payload: overrides,
	}
	b.TotalMessages, _ = document.ToInt(doc["totalMessages"])
	b.Processed, _ = document.ToInt(doc["processed"])
	b.Failed, _ = document.ToInt(doc["failed"])

	if _, err := s.repo.UpsertBatch(ctx, b); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, "hl7.batch.received.v1", events.Subject{Type: "HL7Batch", ID: b.BatchID},
		document.Document{"totalMessages": b.TotalMessages})
	return doc, nil
}
