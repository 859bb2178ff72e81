package account

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ehr/fhirportal/internal/platform/document"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/login", h.Login)
	g.POST("/register", h.Register)
	g.POST("/password-reset", h.PasswordReset)
	g.POST("/mfa/setup", h.MFASetup)
	g.GET("/session", h.Session)
}

type serviceCall func(ctx context.Context, payload document.Document) (document.Document, error)

func respond(c echo.Context, status int, call serviceCall) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, err := call(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(status, doc)
}

func (h *Handler) Login(c echo.Context) error {
	return respond(c, http.StatusOK, h.svc.Login)
}

func (h *Handler) Register(c echo.Context) error {
	return respond(c, http.StatusCreated, h.svc.Register)
}

func (h *Handler) PasswordReset(c echo.Context) error {
	return respond(c, http.StatusOK, h.svc.PasswordReset)
}

func (h *Handler) MFASetup(c echo.Context) error {
	return respond(c, http.StatusOK, h.svc.MFASetup)
}

// Session returns the cached session of the bearer token.
func (h *Handler) Session(c echo.Context) error {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}
	doc, err := h.svc.Session(c.Request().Context(), token)
	if err != nil {
		if IsUnknownSession(err) {
			return echo.NewHTTPError(http.StatusUnauthorized, "unknown session")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}
