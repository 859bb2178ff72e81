package kafka

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func get(t *testing.T, h echo.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := h(echo.New().NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func TestHandler_Config(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)

	rec := get(t, h.Config, "/?section=partitioning")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"per_practitioner"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = get(t, h.Config, "/?section=unknown")
	if strings.TrimSpace(rec.Body.String()) != "null" {
		t.Errorf("expected null body, got %s", rec.Body.String())
	}
}

func TestHandler_SchemaAndGovernance(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)

	if rec := get(t, h.Schema, "/?priority=x"); !strings.Contains(rec.Body.String(), `"priority":"x"`) {
		t.Errorf("schema = %s", rec.Body.String())
	}
	if rec := get(t, h.Governance, "/"); !strings.Contains(rec.Body.String(), `"SCRAM-SHA-512"`) {
		t.Errorf("governance = %s", rec.Body.String())
	}
}

func TestHandler_PublishEventStatus(t *testing.T) {
	svc, _, _ := newTestService()
	h, e := NewHandler(svc), echo.New()
	for i, want := range []int{http.StatusCreated, http.StatusOK} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"eventId":"evt-1"}`))
		if err := h.PublishEvent(e.NewContext(req, rec)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != want {
			t.Errorf("call %d: expected %d, got %d", i+1, want, rec.Code)
		}
	}
}
