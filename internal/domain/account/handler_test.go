package account

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ehr/fhirportal/internal/platform/document"
)

func TestHandler_RegisterStatus(t *testing.T) {
	env := newTestEnv("")
	h, e := NewHandler(env.svc), echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"userId":"u-1"}`))
	if err := h.Register(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if document.Decode(rec.Body.Bytes())["userId"] != "u-1" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_LoginThenSession(t *testing.T) {
	env := newTestEnv("")
	h, e := NewHandler(env.svc), echo.New()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"x@y.z"}`))
	if err := h.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token := document.Decode(rec.Body.Bytes()).String("accessToken", "")

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	if err := h.Session(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if document.Decode(rec.Body.Bytes())["email"] != "x@y.z" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_Session_Unauthorized(t *testing.T) {
	env := newTestEnv("")
	h, e := NewHandler(env.svc), echo.New()

	for _, header := range []string{"", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		err := h.Session(e.NewContext(req, httptest.NewRecorder()))
		if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusUnauthorized {
			t.Errorf("%q: expected 401, got %v", header, err)
		}
	}
}
