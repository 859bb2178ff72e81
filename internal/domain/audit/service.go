package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/auth"
	"github.com/ehr/fhirportal/internal/platform/blobstore"
	"github.com/ehr/fhirportal/internal/platform/db"
	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
	"github.com/ehr/fhirportal/pkg/pagination"
)

const exportLeadTime = 5 * time.Minute

// Signer signs export manifest digests.
type Signer interface {
	SignDigest(subject, digest string) (string, error)
}

type Service struct {
	repo   AuditRepository
	blobs  blobstore.Store
	signer Signer
	events *events.Emitter
	log    zerolog.Logger
}

func NewService(repo AuditRepository, blobs blobstore.Store, signer Signer, em *events.Emitter, log zerolog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, signer: signer, events: em, log: log.With().Str("domain", "audit").Logger()}
}

// Digest is "sha256:" followed by the hex SHA-256 of the canonical JSON
// encoding of doc. Map keys are sorted by the encoder.
func Digest(doc document.Document) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// LogEvent stores an audit event together with a hash of its content.
// The acting user defaults to the bearer token subject.
func (s *Service) LogEvent(ctx context.Context, payload document.Document) (document.Document, error) {
	event := document.Merge(document.Document{
		"eventType":    "access",
		"userId":       auth.UserIDFromContext(ctx),
		"resourceType": "",
		"resourceId":   "",
		"action":       "read",
		"timestamp":    isotime.NowISO(),
	}, payload)
	event["auditId"] = ident.FromValue("audit", payload["auditId"])

	hash, err := Digest(event)
	if err != nil {
		return nil, fmt.Errorf("hash audit event: %w", err)
	}

	e := &Event{
		AuditID:       event.String("auditId", ""),
		EventType:     event.String("eventType", ""),
		UserID:        event.String("userId", ""),
		ResourceType:  event.String("resourceType", ""),
		ResourceID:    event.String("resourceId", ""),
		Action:        event.String("action", ""),
		OccurredAt:    isotime.ParseDateTime(event.String("timestamp", "")),
		ImmutableHash: hash,
		Data:          event,
	}
	if _, err := s.repo.UpsertEvent(ctx, e); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, "audit.logged.v1", events.Subject{Type: "AuditEvent", ID: e.AuditID}, document.Document{
		"eventType": e.EventType,
		"userId":    e.UserID,
		"hash":      hash,
	})
	return document.Document{
		"auditId":       e.AuditID,
		"status":        "logged",
		"timestamp":     event["timestamp"],
		"immutableHash": hash,
	}, nil
}

// ExportKey is the blob key of an audit export manifest.
func ExportKey(exportID string) string {
	return fmt.Sprintf("audit-exports/%s.json", exportID)
}

// Export queues an audit log export. The manifest is written to the blob
// store and its digest signed.
func (s *Service) Export(ctx context.Context, query url.Values) (document.Document, error) {
	q := document.FromQuery(query)
	exportID := ident.Generate("audit-export")
	completion := isotime.Now().Add(exportLeadTime)

	doc := document.Document{
		"exportId":            exportID,
		"status":              "processing",
		"format":              q.Value("format", "csv"),
		"downloadUrl":         "/api/v1/audit/exports/" + exportID,
		"estimatedCompletion": isotime.Format(&completion),
	}
	manifest := document.Merge(doc, document.Document{
		"parameters":  q,
		"requestedAt": isotime.NowISO(),
	})
	body, err := json.Marshal(manifest)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(body)
	signature, err := s.signer.SignDigest(exportID, "sha256:"+hex.EncodeToString(sum[:]))
	if err != nil {
		return nil, err
	}
	doc["digitalSignature"] = signature

	ex := &Export{
		ExportID:    exportID,
		Status:      "processing",
		Format:      doc.String("format", ""),
		DownloadURL: doc.String("downloadUrl", ""),
		Parameters:  q,
	}
	if _, err := s.repo.UpsertExport(ctx, ex); err != nil {
		return nil, err
	}
	if s.blobs != nil {
		if err := s.blobs.Put(ctx, ExportKey(exportID), "application/json", body); err != nil {
			s.log.Warn().Err(err).Str("export_id", exportID).Msg("audit export manifest not stored")
		}
	}
	return doc, nil
}

// ExportManifest returns a previously written export manifest.
func (s *Service) ExportManifest(ctx context.Context, exportID string) (*blobstore.Blob, error) {
	if s.blobs == nil {
		return nil, db.ErrNotFound
	}
	b, err := s.blobs.Get(ctx, ExportKey(exportID))
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, db.ErrNotFound
	}
	return b, err
}

// Anomalies lists recorded anomalies, optionally filtered by userId and
// severity. A sample anomaly is returned when nothing matches.
func (s *Service) Anomalies(ctx context.Context, query url.Values) (document.Document, error) {
	p := pagination.FromQuery(query)
	rows, err := s.repo.ListAnomalies(ctx, AnomalyQuery{
		UserID:   query.Get("userId"),
		Severity: query.Get("severity"),
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		return nil, err
	}

	list := make([]interface{}, 0, len(rows))
	for _, a := range rows {
		list = append(list, a.view())
	}
	if len(list) == 0 {
		list = append(list, sampleAnomaly())
	}
	return document.Document{
		"period":    document.FromQuery(query).Value("period", "P7D"),
		"anomalies": list,
	}, nil
}

func (s *Service) RecordAnomaly(ctx context.Context, payload document.Document) (document.Document, bool, error) {
	doc := document.Merge(document.Document{
		"type":        "unusual_access_pattern",
		"userId":      auth.UserIDFromContext(ctx),
		"description": "",
		"severity":    "medium",
		"score":       0.75,
		"timestamp":   isotime.NowISO(),
	}, payload)
	doc["anomalyId"] = ident.FromValue("anomaly", payload["anomalyId"])

	a := &Anomaly{
		AnomalyID:   doc.String("anomalyId", ""),
		UserID:      doc.String("userId", ""),
		AnomalyType: doc.String("type", ""),
		Description: doc.String("description", ""),
		Severity:    doc.String("severity", ""),
		Score:       doc.Float("score", 0),
		DetectedAt:  isotime.ParseDateTime(doc.String("timestamp", "")),
		Data:        doc,
	}
	if a.DetectedAt == nil {
		now := isotime.Now()
		a.DetectedAt = &now
	}
	created, err := s.repo.UpsertAnomaly(ctx, a)
	if err != nil {
		return nil, false, err
	}
	s.log.Info().Str("anomaly_id", a.AnomalyID).Str("severity", a.Severity).Msg("anomaly recorded")
	s.events.Emit(ctx, "audit.anomaly.detected.v1", events.Subject{Type: "User", ID: a.UserID}, document.Document{
		"anomalyId": a.AnomalyID,
		"type":      a.AnomalyType,
		"severity":  a.Severity,
	})
	return doc, created, nil
}
