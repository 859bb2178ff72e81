package access

import (
	"net/http"

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
	g := api.Group("/roles")
	g.POST("/assign", h.Assign)
	g.POST("/validate", h.Validate)
	g.POST("/abac/evaluate", h.EvaluateABAC)
}

func (h *Handler) Assign(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.Assign(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *Handler) Validate(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.Validate(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) EvaluateABAC(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.EvaluateABAC(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}
