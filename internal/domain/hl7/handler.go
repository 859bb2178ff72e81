package hl7

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
	g := api.Group("/hl7-parser")
	g.POST("/ingest", h.Ingest)
	g.GET("/parse-status/:messageId", h.ParseStatus)
	g.POST("/batch", h.Batch)
}

func (h *Handler) Ingest(c echo.Context) error {
	body, raw, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, created, err := h.svc.Ingest(c.Request().Context(), body, raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, doc)
}

func (h *Handler) ParseStatus(c echo.Context) error {
	doc, err := h.svc.ParseStatus(c.Request().Context(), c.Param("messageId"), c.QueryParams())
	if err != nil {
		if db.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "message not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) Batch(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.Batch(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, doc)
}
