package hl7

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

func TestHandler_Ingest(t *testing.T) {
	h, e := newTestHandler()
	body := `{"status":"custom-status","fhirResources":[{"identifier":[{"value":"MRN12345"}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Ingest(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	doc := document.Decode(rec.Body.Bytes())
	if doc["status"] != "custom-status" {
		t.Errorf("status = %v", doc["status"])
	}
}

func TestHandler_Ingest_NonObjectBody(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[1,2,3]`))
	rec := httptest.NewRecorder()
	if err := h.Ingest(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if document.Decode(rec.Body.Bytes())["status"] != "processed" {
		t.Errorf("expected defaults for array body, got %s", rec.Body.String())
	}
}

func TestHandler_ParseStatus_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("messageId")
	c.SetParamValues("nope")

	err := h.ParseStatus(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_Batch(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"batchId":"b1"}`))
	rec := httptest.NewRecorder()
	if err := h.Batch(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rec.Code)
	}
}
