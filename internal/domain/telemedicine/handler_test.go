package telemedicine

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_CreateSession(t *testing.T) {
	svc, _, _ := newTestService()
	h, e := NewHandler(svc), echo.New()

	for i, want := range []int{http.StatusCreated, http.StatusOK} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sessionId":"s-1"}`))
		if err := h.CreateSession(e.NewContext(req, rec)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != want {
			t.Errorf("call %d: expected %d, got %d", i+1, want, rec.Code)
		}
	}
}

func TestHandler_Metrics(t *testing.T) {
	svc, _, _ := newTestService()
	h, e := NewHandler(svc), echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?packetLoss=0.5", nil), rec)
	c.SetParamNames("sessionId")
	c.SetParamValues("s-9")
	if err := h.Metrics(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"packetLoss":0.5`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
