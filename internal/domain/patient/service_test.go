package patient

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/blobstore"
	"github.com/ehr/fhirportal/internal/platform/db"
	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
	"github.com/ehr/fhirportal/pkg/pagination"
)

// ── Mock Repository ──

type mockPatientRepo struct {
	data    map[string]*Patient
	order   []string
	merges  []*MergeEvent
	exports map[string]*Export
}

func newMockRepo() *mockPatientRepo {
	return &mockPatientRepo{data: make(map[string]*Patient), exports: make(map[string]*Export)}
}

func (m *mockPatientRepo) Upsert(_ context.Context, p *Patient) (bool, error) {
	_, exists := m.data[p.PatientID]
	if !exists {
		m.order = append(m.order, p.PatientID)
	}
	m.data[p.PatientID] = p
	return !exists, nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id string) (*Patient, error) {
	if p, ok := m.data[id]; ok {
		return p, nil
	}
	return nil, db.ErrNotFound
}

func (m *mockPatientRepo) Search(_ context.Context, params SearchParams, page pagination.Params) ([]*Patient, error) {
	var out []*Patient
	for _, id := range m.order {
		p := m.data[id]
		if params.Identifier != "" && !strings.Contains(strings.ToLower(p.Identifier), strings.ToLower(params.Identifier)) {
			continue
		}
		if len(params.Names) > 0 {
			hit := false
			for _, n := range params.Names {
				if strings.Contains(strings.ToLower(p.Name), strings.ToLower(n)) {
					hit = true
				}
			}
			if !hit {
				continue
			}
		}
		if params.BirthDate != nil && (p.BirthDate == nil || !p.BirthDate.Equal(*params.BirthDate)) {
			continue
		}
		if params.Gender != "" && !strings.EqualFold(p.Gender, params.Gender) {
			continue
		}
		out = append(out, p)
	}
	if page.Offset >= len(out) {
		return nil, nil
	}
	out = out[page.Offset:]
	if len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func (m *mockPatientRepo) CreateMergeEvent(_ context.Context, ev *MergeEvent) error {
	m.merges = append(m.merges, ev)
	return nil
}

func (m *mockPatientRepo) UpsertExport(_ context.Context, ex *Export) (bool, error) {
	_, exists := m.exports[ex.ExportID]
	m.exports[ex.ExportID] = ex
	return !exists, nil
}

func newTestService() (*Service, *mockPatientRepo, *blobstore.MemoryStore, *events.Recorder) {
	repo := newMockRepo()
	blobs := blobstore.NewMemoryStore()
	rec := &events.Recorder{}
	return NewService(repo, blobs, events.NewEmitter(rec, zerolog.Nop()), zerolog.Nop()), repo, blobs, rec
}

func TestRegister_Defaults(t *testing.T) {
	svc, repo, _, rec := newTestService()

	doc, created, err := svc.Register(context.Background(), document.Document{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected created")
	}
	id := doc.String("id", "")
	if !strings.HasPrefix(id, "patient-") {
		t.Errorf("id = %q", id)
	}
	if doc["gender"] != "unknown" || doc["birthDate"] != "1970-01-01" {
		t.Errorf("demographics = %v %v", doc["gender"], doc["birthDate"])
	}
	if doc.Map("meta")["versionId"] != "1" {
		t.Errorf("meta = %v", doc["meta"])
	}
	stored := repo.data[id]
	if stored.Identifier != "MRN-SAMPLE" || stored.Name != "Sample Patient" {
		t.Errorf("flattened = %+v", stored)
	}
	if stored.BirthDate == nil || stored.BirthDate.Year() != 1970 {
		t.Errorf("birth date = %v", stored.BirthDate)
	}
	if types := rec.Types(); len(types) != 2 || types[0] != "patient.registered.v1" {
		t.Errorf("events = %v", types)
	}
}

func TestRegister_EmptyListsFallBack(t *testing.T) {
	svc, _, _, _ := newTestService()
	doc, _, _ := svc.Register(context.Background(), document.Document{
		"identifier": []interface{}{},
		"name":       []interface{}{},
	})
	if document.FirstValue(doc["identifier"]) != "MRN-SAMPLE" {
		t.Errorf("identifier = %v", doc["identifier"])
	}
	if document.FullName(doc["name"]) != "Sample Patient" {
		t.Errorf("name = %v", doc["name"])
	}
}

func TestRegister_Overrides(t *testing.T) {
	svc, repo, _, _ := newTestService()
	doc, _, _ := svc.Register(context.Background(), document.Document{
		"id":         "p-1",
		"gender":     "female",
		"name":       []interface{}{map[string]interface{}{"family": "Doe", "given": []interface{}{"Jane"}}},
		"identifier": []interface{}{map[string]interface{}{"value": "MRN-42"}},
		"meta":       map[string]interface{}{"versionId": "9"},
	})
	if doc["id"] != "p-1" || doc.Map("meta")["versionId"] != "9" {
		t.Errorf("unexpected doc: %v", doc)
	}
	if p := repo.data["p-1"]; p.Name != "Doe Jane" || p.Identifier != "MRN-42" || p.Gender != "female" {
		t.Errorf("flattened = %+v", p)
	}

	_, created, _ := svc.Register(context.Background(), document.Document{"id": "p-1"})
	if created {
		t.Error("second register of the same id should update")
	}
}

func TestUpdate(t *testing.T) {
	svc, repo, _, _ := newTestService()
	doc, err := svc.Update(context.Background(), "p-9", document.Document{"id": "other", "gender": "male"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["id"] != "p-9" {
		t.Errorf("path id should win, got %v", doc["id"])
	}
	if doc.Map("meta")["versionId"] != "2" {
		t.Errorf("versionId = %v", doc.Map("meta")["versionId"])
	}
	if repo.data["p-9"] == nil || repo.data["other"] != nil {
		t.Error("row stored under wrong key")
	}
}

func TestSearch(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	_, _, _ = svc.Register(ctx, document.Document{"id": "a", "gender": "female", "birthDate": "1980-05-17",
		"name": []interface{}{map[string]interface{}{"family": "Smith", "given": []interface{}{"Ann"}}}})
	_, _, _ = svc.Register(ctx, document.Document{"id": "b", "gender": "male",
		"name": []interface{}{map[string]interface{}{"family": "Jones"}}})

	bundle, err := svc.Search(ctx, url.Values{"gender": {"FEMALE"}}, "/api/v1/patients/search")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle["total"] != 1 || document.First(bundle["entry"]).Map("resource")["id"] != "a" {
		t.Errorf("unexpected bundle: %v", bundle)
	}

	bundle, _ = svc.Search(ctx, url.Values{"name": {"smith", "jones"}}, "/")
	if bundle["total"] != 2 {
		t.Errorf("expected OR over names, got %v", bundle["total"])
	}

	bundle, _ = svc.Search(ctx, url.Values{"birthdate": {"1980-05-17"}}, "/")
	if bundle["total"] != 1 {
		t.Errorf("birthdate filter: %v", bundle["total"])
	}

	bundle, _ = svc.Search(ctx, url.Values{"birthdate": {"not-a-date"}}, "/")
	if bundle["total"] != 2 {
		t.Errorf("unparseable birthdate should be ignored: %v", bundle["total"])
	}
}

func TestSearch_EmptyFallsBackToSample(t *testing.T) {
	svc, _, _, _ := newTestService()
	bundle, _ := svc.Search(context.Background(), url.Values{"identifier": {"nothing"}}, "/")
	if bundle["resourceType"] != "Bundle" || bundle["type"] != "searchset" || bundle["total"] != 1 {
		t.Errorf("unexpected bundle: %v", bundle)
	}
	res := document.First(bundle["entry"]).Map("resource")
	if res["resourceType"] != "Patient" {
		t.Errorf("fallback resource = %v", res)
	}
}

func TestMerge(t *testing.T) {
	svc, repo, _, _ := newTestService()
	doc, err := svc.Merge(context.Background(), "src", "dst", document.Document{"reason": "duplicate"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["status"] != "merged" || doc["resultPatientId"] != "dst" {
		t.Errorf("unexpected doc: %v", doc)
	}
	if !strings.HasPrefix(doc.String("auditId", ""), "audit-") {
		t.Errorf("auditId = %v", doc["auditId"])
	}
	if len(repo.merges) != 1 || repo.merges[0].Payload["reason"] != "duplicate" {
		t.Errorf("merge event = %+v", repo.merges)
	}
}

func TestExportAndDownload(t *testing.T) {
	svc, repo, blobs, _ := newTestService()
	ctx := context.Background()
	_, _, _ = svc.Register(ctx, document.Document{"id": "p1"})

	doc, err := svc.Export(ctx, "p1", url.Values{"includeSections": {"labs", "meds"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exportID := doc.String("exportId", "")
	if doc["downloadUrl"] != "/api/v1/exports/"+exportID+"/download" {
		t.Errorf("downloadUrl = %v", doc["downloadUrl"])
	}
	if doc["format"] != "pdf" || doc["size"] != "0MB" || doc["status"] != "completed" {
		t.Errorf("defaults = %v", doc)
	}
	if ex := repo.exports[exportID]; ex == nil || len(ex.IncludeSections) != 2 {
		t.Errorf("export row = %+v", ex)
	}
	if blobs.Len() != 1 {
		t.Fatalf("expected manifest blob, have %d", blobs.Len())
	}
	if _, err := blobs.Get(ctx, "patient-exports/"+exportID+".json"); err != nil {
		t.Errorf("manifest not stored under patient-exports/: %v", err)
	}

	b, err := svc.Download(ctx, exportID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	manifest := document.Decode(b.Body)
	if manifest["patientId"] != "p1" || manifest.Map("patient")["id"] != "p1" {
		t.Errorf("manifest = %v", manifest)
	}

	if _, err := svc.Download(ctx, "missing"); !db.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestExport_QueryOverrides(t *testing.T) {
	svc, _, _, _ := newTestService()
	doc, _ := svc.Export(context.Background(), "p1", url.Values{"format": {"json"}, "downloadUrl": {"https://x/y"}})
	if doc["format"] != "json" || doc["downloadUrl"] != "https://x/y" {
		t.Errorf("overrides ignored: %v", doc)
	}
}
