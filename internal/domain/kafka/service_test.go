package kafka

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

type mockKafkaRepo struct {
	events      map[string]*EventRecord
	deadLetters map[string]*DeadLetter
}

func newMockRepo() *mockKafkaRepo {
	return &mockKafkaRepo{events: make(map[string]*EventRecord), deadLetters: make(map[string]*DeadLetter)}
}

func (m *mockKafkaRepo) UpsertEvent(_ context.Context, e *EventRecord) (bool, error) {
	_, exists := m.events[e.EventID]
	m.events[e.EventID] = e
	return !exists, nil
}

func (m *mockKafkaRepo) UpsertDeadLetter(_ context.Context, d *DeadLetter) (bool, error) {
	_, exists := m.deadLetters[d.DLQEventID]
	m.deadLetters[d.DLQEventID] = d
	return !exists, nil
}

func newTestService() (*Service, *mockKafkaRepo, *events.Recorder) {
	repo := newMockRepo()
	rec := &events.Recorder{}
	return NewService(repo, events.NewEmitter(rec, zerolog.Nop()), zerolog.Nop()), repo, rec
}

func TestSchema_QueryOverrides(t *testing.T) {
	svc, _, _ := newTestService()
	doc := svc.Schema(url.Values{"eventType": {"observation.created.v1"}})
	if doc["eventType"] != "observation.created.v1" {
		t.Errorf("eventType = %v", doc["eventType"])
	}
	if doc.Map("source")["service"] != "patient-service" || doc.Map("compliance")["retentionPeriod"] != "P7Y" {
		t.Errorf("unexpected envelope: %v", doc)
	}

	doc = svc.Schema(url.Values{})
	if doc["eventId"] != "event-uuid-sample" {
		t.Errorf("eventId = %v", doc["eventId"])
	}
}

func TestSchema_DoesNotMutateTemplate(t *testing.T) {
	svc, _, _ := newTestService()
	_ = svc.Schema(url.Values{"source": {"flat"}})
	if _, ok := document.AsMap(svc.Schema(url.Values{})["source"]); !ok {
		t.Error("template was mutated by a previous call")
	}
}

func TestConfig_Sections(t *testing.T) {
	svc, _, _ := newTestService()

	full, ok := svc.Config("").(document.Document)
	if !ok {
		t.Fatalf("expected a document, got %T", svc.Config(""))
	}
	for _, key := range []string{"topics", "partitioning", "consumerGroups", "monitoring"} {
		if !full.Has(key) {
			t.Errorf("missing section %s", key)
		}
	}

	topicsSection, ok := svc.Config("topics").(document.Document)
	if !ok || topicsSection.Map(DeadLetterTopic).Map("retryPolicy")["maxRetries"] != 3 {
		t.Errorf("topics = %v", svc.Config("topics"))
	}
	if svc.Config("nope") != nil {
		t.Error("unknown section should be nil")
	}
}

func TestGovernance(t *testing.T) {
	svc, _, _ := newTestService()
	g := svc.Governance()
	if g.Map("schemaRegistry")["compatibilityLevel"] != "BACKWARD" {
		t.Errorf("schemaRegistry = %v", g["schemaRegistry"])
	}
	if g.Map("security")["protocol"] != "SASL_SSL" {
		t.Errorf("security = %v", g["security"])
	}
	if g.Map("retryPolicy").Map("backoffPolicy")["type"] != "exponential" {
		t.Errorf("retryPolicy = %v", g["retryPolicy"])
	}
}

func TestPublishEvent(t *testing.T) {
	svc, repo, rec := newTestService()
	doc, created, err := svc.PublishEvent(context.Background(), document.Document{
		"eventType": "patient.updated.v1",
		"subject":   map[string]interface{}{"type": "Patient", "id": "p1"},
		"metadata":  map[string]interface{}{"priority": "high"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected created")
	}
	id := doc.String("eventId", "")
	if !strings.HasPrefix(id, "event-") {
		t.Errorf("eventId = %q", id)
	}
	md := doc.Map("metadata")
	if md["priority"] != "high" || md["retryCount"] != 0 {
		t.Errorf("metadata = %v", md)
	}
	if doc.Map("subject")["id"] != "p1" {
		t.Errorf("subject = %v", doc["subject"])
	}
	if r := repo.events[id]; r == nil || r.EventType != "patient.updated.v1" {
		t.Errorf("stored = %+v", r)
	}
	published := rec.Events()
	if len(published) != 1 || published[0]["eventId"] != id {
		t.Errorf("published = %v", published)
	}

	_, created, _ = svc.PublishEvent(context.Background(), document.Document{"eventId": id})
	if created {
		t.Error("same eventId should update")
	}
}

func TestDeadLetter(t *testing.T) {
	svc, repo, rec := newTestService()
	doc, created, err := svc.DeadLetter(context.Background(), document.Document{
		"originalEvent": map[string]interface{}{"eventId": "e1"},
		"failureInfo":   map[string]interface{}{"reason": "timeout", "retryCount": 3.0},
	})
	if err != nil || !created {
		t.Fatalf("DeadLetter: created=%v err=%v", created, err)
	}
	fi := doc.Map("failureInfo")
	if fi["reason"] != "timeout" || fi["retryCount"] != 3.0 || fi["lastError"] != "" {
		t.Errorf("failureInfo = %v", fi)
	}
	if doc.Map("routing")["topic"] != DeadLetterTopic {
		t.Errorf("routing = %v", doc["routing"])
	}
	if repo.deadLetters[doc.String("dlqEventId", "")] == nil {
		t.Error("dead letter not stored")
	}
	if len(rec.Types()) != 0 {
		t.Error("dead letters are not republished")
	}
}
