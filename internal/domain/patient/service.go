package patient

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/blobstore"
	"github.com/ehr/fhirportal/internal/platform/db"
	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/internal/platform/fhir"
	"github.com/ehr/fhirportal/internal/platform/ident"
	"github.com/ehr/fhirportal/internal/platform/isotime"
	"github.com/ehr/fhirportal/pkg/pagination"
)

type Service struct {
	repo   PatientRepository
	blobs  blobstore.Store
	events *events.Emitter
	log    zerolog.Logger
}

func NewService(repo PatientRepository, blobs blobstore.Store, em *events.Emitter, log zerolog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, events: em, log: log.With().Str("domain", "patient").Logger()}
}

func subject(id string) events.Subject {
	return events.Subject{Type: "Patient", ID: id}
}

func (s *Service) Register(ctx context.Context, payload document.Document) (document.Document, bool, error) {
	doc := mergePatient(patientTemplate(payload, "1"), payload)
	id := ident.FromValue("patient", doc["id"])

	created, err := s.repo.Upsert(ctx, flatten(id, doc))
	if err != nil {
		return nil, false, err
	}
	doc["id"] = id
	s.log.Debug().Str("patient_id", id).Bool("created", created).Msg("patient registered")

	s.events.Emit(ctx, "patient.registered.v1", subject(id), document.Document{
		"action":       "created",
		"currentState": document.Document{"gender": doc["gender"], "birthDate": doc["birthDate"]},
	})
	if created {
		s.events.Emit(ctx, "audit.patient.created.v1", subject(id), document.Document{"action": "create"})
	}
	return doc, created, nil
}

// Update replaces the stored patient. The path id always wins over any id
// in the payload.
func (s *Service) Update(ctx context.Context, patientID string, payload document.Document) (document.Document, error) {
	withID := document.Merge(payload, document.Document{"id": patientID})
	doc := mergePatient(patientTemplate(withID, "2"), payload)
	doc["id"] = patientID

	if _, err := s.repo.Upsert(ctx, flatten(patientID, doc)); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, "patient.updated.v1", subject(patientID), document.Document{"action": "updated"})
	return doc, nil
}

// Get returns the stored Patient resource.
func (s *Service) Get(ctx context.Context, patientID string) (document.Document, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return p.Resource(), nil
}

// Search returns a searchset Bundle. An empty result yields one sample
// Patient so the bundle is never empty.
func (s *Service) Search(ctx context.Context, query url.Values, basePath string) (document.Document, error) {
	params := SearchParams{
		Identifier: query.Get("identifier"),
		Names:      query["name"],
		Gender:     query.Get("gender"),
	}
	if bd := query.Get("birthdate"); bd != "" {
		params.BirthDate = isotime.ParseDate(bd)
	}
	page := pagination.FromQuery(query)

	rows, err := s.repo.Search(ctx, params, page)
	if err != nil {
		return nil, err
	}
	resources := make([]document.Document, 0, len(rows))
	for _, p := range rows {
		resources = append(resources, p.Resource())
	}
	if len(resources) == 0 {
		resources = append(resources, patientTemplate(nil, "1"))
	}

	bundle := fhir.NewSearchBundle(resources)
	links := make([]interface{}, 0, 3)
	for _, l := range page.Links(basePath, len(rows)) {
		links = append(links, document.Document{"relation": l.Relation, "url": l.URL})
	}
	bundle["link"] = links
	return bundle, nil
}

func (s *Service) Merge(ctx context.Context, sourceID, targetID string, payload document.Document) (document.Document, error) {
	doc := document.Document{
		"status":          payload.Value("status", "merged"),
		"resultPatientId": targetID,
		"mergedFields":    payload.Value("mergedFields", document.Strings("telecom", "address")),
		"auditId":         ident.FromValue("audit", payload["auditId"]),
	}
	ev := &MergeEvent{
		SourcePatientID: sourceID,
		TargetPatientID: targetID,
		AuditID:         doc.String("auditId", ""),
		Payload: document.Document{
			"reason":        payload.String("reason", ""),
			"mergeStrategy": payload.String("mergeStrategy", ""),
			"mergedFields":  doc["mergedFields"],
			"auditReason":   payload.String("auditReason", ""),
		},
	}
	if err := s.repo.CreateMergeEvent(ctx, ev); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, "patient.merged.v1", subject(targetID), document.Document{
		"action":          "merged",
		"sourcePatientId": sourceID,
		"auditId":         ev.AuditID,
	})
	return doc, nil
}

// ExportKey is the blob key of an export manifest.
func ExportKey(exportID string) string {
	return fmt.Sprintf("patient-exports/%s.json", exportID)
}

// Export records an export job and writes its manifest to the blob store.
func (s *Service) Export(ctx context.Context, patientID string, query url.Values) (document.Document, error) {
	exportID := ident.Generate("export")
	param := func(key, def string) string {
		if query.Has(key) {
			return query.Get(key)
		}
		return def
	}
	doc := document.Document{
		"exportId":    exportID,
		"status":      param("status", "completed"),
		"downloadUrl": param("downloadUrl", fmt.Sprintf("/api/v1/exports/%s/download", exportID)),
		"format":      param("format", "pdf"),
		"size":        param("size", "0MB"),
		"expiresAt":   param("expiresAt", isotime.NowISO()),
	}
	sections := query["includeSections"]
	if sections == nil {
		sections = []string{}
	}

	ex := &Export{
		ExportID:        exportID,
		PatientID:       patientID,
		Status:          doc.String("status", ""),
		Format:          doc.String("format", ""),
		IncludeSections: sections,
		Data:            doc,
	}
	if _, err := s.repo.UpsertExport(ctx, ex); err != nil {
		return nil, err
	}
	s.writeManifest(ctx, patientID, doc, sections)
	s.events.Emit(ctx, "patient.exported.v1", subject(patientID), document.Document{"exportId": exportID})
	return doc, nil
}

func (s *Service) writeManifest(ctx context.Context, patientID string, export document.Document, sections []string) {
	if s.blobs == nil {
		return
	}
	manifest := document.Merge(export, document.Document{
		"patientId":       patientID,
		"includeSections": sections,
		"generatedAt":     isotime.NowISO(),
	})
	if p, err := s.repo.GetByID(ctx, patientID); err == nil {
		manifest["patient"] = p.Resource()
	}
	body, err := json.Marshal(manifest)
	if err == nil {
		err = s.blobs.Put(ctx, ExportKey(export.String("exportId", "")), "application/json", body)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("patient_id", patientID).Msg("export manifest not stored")
	}
}

// Download returns a previously written export manifest.
func (s *Service) Download(ctx context.Context, exportID string) (*blobstore.Blob, error) {
	if s.blobs == nil {
		return nil, db.ErrNotFound
	}
	b, err := s.blobs.Get(ctx, ExportKey(exportID))
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, db.ErrNotFound
	}
	return b, err
}
