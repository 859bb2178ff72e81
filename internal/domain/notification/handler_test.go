package notification

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_Statuses(t *testing.T) {
	svc, _, _ := newTestService()
	h, e := NewHandler(svc), echo.New()

	tests := []struct {
		name string
		call func(echo.Context) error
		want int
	}{
		{"send", h.Send, http.StatusCreated},
		{"templates", h.CreateTemplate, http.StatusCreated},
		{"bulk", h.Bulk, http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if err := tt.call(e.NewContext(req, rec)); err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, rec.Code)
		}
	}
}

func TestHandler_SendNonObjectBody(t *testing.T) {
	svc, _, _ := newTestService()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[1,2]`))
	if err := NewHandler(svc).Send(echo.New().NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"status":"scheduled"`) {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
