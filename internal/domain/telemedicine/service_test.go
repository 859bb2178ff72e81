package telemedicine

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/events"
)

// ── Mock Repository ──

type mockTelemedicineRepo struct {
	sessions map[string]*Session
	consents map[string]*Consent
}

func newMockRepo() *mockTelemedicineRepo {
	return &mockTelemedicineRepo{sessions: make(map[string]*Session), consents: make(map[string]*Consent)}
}

func (m *mockTelemedicineRepo) UpsertSession(_ context.Context, s *Session) (bool, error) {
	_, exists := m.sessions[s.SessionID]
	m.sessions[s.SessionID] = s
	return !exists, nil
}

func (m *mockTelemedicineRepo) UpdateSettings(_ context.Context, sessionID string, settings document.Document) (bool, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return false, nil
	}
	s.Settings = settings
	return true, nil
}

func (m *mockTelemedicineRepo) UpsertConsent(_ context.Context, c *Consent) (bool, error) {
	key := c.SessionID + "|" + c.UserID + "|" + c.ConsentType
	_, exists := m.consents[key]
	m.consents[key] = c
	return !exists, nil
}

func newTestService() (*Service, *mockTelemedicineRepo, *events.Recorder) {
	repo := newMockRepo()
	rec := &events.Recorder{}
	return NewService(repo, events.NewEmitter(rec, zerolog.Nop()), zerolog.Nop()), repo, rec
}

func TestCreateSession_Defaults(t *testing.T) {
	svc, repo, rec := newTestService()
	doc, created, err := svc.CreateSession(context.Background(), document.Document{"estimatedDuration": 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected created")
	}
	id := doc.String("sessionId", "")
	if !strings.HasPrefix(id, "session-") {
		t.Errorf("sessionId = %q", id)
	}
	if doc.Map("joinUrls")["patient"] != "https://telemedicine.example.com/join/patient-token" {
		t.Errorf("joinUrls = %v", doc["joinUrls"])
	}
	settings := doc.Map("sessionSettings")
	if settings["recordingEnabled"] != false || settings["chatEnabled"] != true {
		t.Errorf("sessionSettings = %v", settings)
	}
	s := repo.sessions[id]
	if s.SessionType != "video_consultation" || s.EstimatedDuration == nil || *s.EstimatedDuration != 30 {
		t.Errorf("session = %+v", s)
	}
	if types := rec.Types(); len(types) != 1 || types[0] != "telemedicine.session.started.v1" {
		t.Errorf("events = %v", types)
	}

	_, created, _ = svc.CreateSession(context.Background(), document.Document{"sessionId": id})
	if created {
		t.Error("same session id should update")
	}
}

func TestRecordConsent(t *testing.T) {
	svc, repo, _ := newTestService()
	doc, err := svc.RecordConsent(context.Background(), document.Document{
		"sessionId": "s1", "userId": "u1", "timestamp": "2024-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["consentType"] != "video_recording" || doc["granted"] != true {
		t.Errorf("unexpected doc: %v", doc)
	}
	if v, ok := doc["ipAddress"]; !ok || v != nil {
		t.Errorf("ipAddress should be null, got %v", v)
	}
	c := repo.consents["s1|u1|video_recording"]
	if c == nil || c.RecordedAt == nil || c.IPAddress != "" {
		t.Errorf("consent = %+v", c)
	}
}

func TestMetrics(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	_, _, _ = svc.CreateSession(ctx, document.Document{"sessionId": "s1"})

	doc, err := svc.Metrics(ctx, "s1", url.Values{"averageLatency": {"42.5"}, "duration": {"900"}, "videoQuality": {"SD"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := doc.Map("qualityMetrics")
	if q["averageLatency"] != 42.5 || q["packetLoss"] != 0.0 || q["videoQuality"] != "SD" || q["audioQuality"] != "excellent" {
		t.Errorf("qualityMetrics = %v", q)
	}
	if doc["duration"] != 900 || len(doc.List("participants")) != 1 {
		t.Errorf("unexpected doc: %v", doc)
	}
	stored, _ := document.AsMap(repo.sessions["s1"].Settings)
	if stored.Map("qualityMetrics")["videoQuality"] != "SD" {
		t.Errorf("settings = %v", stored)
	}
}

func TestMetrics_UnknownSession(t *testing.T) {
	svc, repo, _ := newTestService()
	doc, err := svc.Metrics(context.Background(), "nope", url.Values{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["sessionId"] != "nope" || len(repo.sessions) != 0 {
		t.Errorf("unexpected doc: %v", doc)
	}
}
