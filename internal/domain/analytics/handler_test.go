package analytics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_RiskScore(t *testing.T) {
	svc, _, _ := newTestService()
	h, e := NewHandler(svc), echo.New()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"patientId":"p1"}`))
	if err := h.RiskScore(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_TrainModelAccepted(t *testing.T) {
	svc, repo, _ := newTestService()
	h, e := NewHandler(svc), echo.New()

	rec := httptest.NewRecorder()
	body := `{"trainingJob":{"trainingJobId":"job-7","modelType":"xgboost"}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if err := h.TrainModel(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rec.Code)
	}
	if _, ok := repo.jobs["job-7"]; !ok {
		t.Error("expected training job to be stored")
	}
}

func TestHandler_ModelVersion(t *testing.T) {
	svc, repo, _ := newTestService()
	h, e := NewHandler(svc), echo.New()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"modelVersionId":"v2"}`))
	c := e.NewContext(req, rec)
	c.SetParamNames("modelId")
	c.SetParamValues("readmit")
	if err := h.ModelVersion(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if _, ok := repo.jobs["readmit:v2"]; !ok {
		t.Errorf("expected job keyed by model and version, have %v", repo.jobs)
	}
}

func TestHandler_Trends(t *testing.T) {
	svc, _, _ := newTestService()
	h, e := NewHandler(svc), echo.New()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?metric=los&metric=mortality", nil)
	if err := h.Trends(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"los"`) || !strings.Contains(body, `"mortality"`) {
		t.Errorf("unexpected body: %s", body)
	}
}
