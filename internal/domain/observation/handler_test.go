package observation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ehr/fhirportal/internal/platform/document"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func TestHandler_LabResults_GetEmptyBody(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	if err := h.LabResults(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	bundle := document.Decode(rec.Body.Bytes())
	if bundle["resourceType"] != "Bundle" {
		t.Errorf("resourceType = %v", bundle["resourceType"])
	}
	entries := bundle.List("entry")
	if len(entries) == 0 {
		t.Fatal("expected entries")
	}
	for _, e := range entries {
		m, _ := document.AsMap(e)
		if !strings.Contains(m.Map("response").String("location", ""), "Observation/") {
			t.Errorf("entry = %v", m)
		}
	}
}

func TestHandler_Create(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":"obs-x","status":"preliminary"}`))
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":"obs-x"}`))
	rec = httptest.NewRecorder()
	_ = h.Create(e.NewContext(req, rec))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 on update, got %d", rec.Code)
	}
}

func TestHandler_Trends(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?unit=mmol/L", nil), rec)
	c.SetParamNames("patientId")
	c.SetParamValues("p1")
	if err := h.Trends(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := document.Decode(rec.Body.Bytes())
	if doc["patientId"] != "p1" || doc["unit"] != "mmol/L" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
