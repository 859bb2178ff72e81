package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/fhirportal/internal/platform/db"
	"github.com/ehr/fhirportal/internal/platform/document"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/audit")
	g.POST("/events", h.LogEvent)
	g.GET("/export", h.Export)
	g.GET("/exports/:exportId", h.ExportManifest)
	g.GET("/anomalies", h.Anomalies)
	g.POST("/anomalies", h.RecordAnomaly)
}

func (h *Handler) LogEvent(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.LogEvent(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) Export(c echo.Context) error {
	doc, err := h.svc.Export(c.Request().Context(), c.QueryParams())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) ExportManifest(c echo.Context) error {
	b, err := h.svc.ExportManifest(c.Request().Context(), c.Param("exportId"))
	if err != nil {
		if db.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "audit export not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, b.ContentType, b.Body)
}

func (h *Handler) Anomalies(c echo.Context) error {
	doc, err := h.svc.Anomalies(c.Request().Context(), c.QueryParams())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) RecordAnomaly(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, created, err := h.svc.RecordAnomaly(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, doc)
}
