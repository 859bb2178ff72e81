package kafka

import (
	"context"
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
	g := api.Group("/kafka")
	g.GET("/events/schema", h.Schema)
	g.GET("/config", h.Config)
	g.GET("/governance", h.Governance)
	g.POST("/events", h.PublishEvent)
	g.POST("/dlq", h.DeadLetter)
}

func (h *Handler) Schema(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Schema(c.QueryParams()))
}

func (h *Handler) Config(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Config(c.QueryParam("section")))
}

func (h *Handler) Governance(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Governance())
}

func (h *Handler) PublishEvent(c echo.Context) error {
	return store(c, h.svc.PublishEvent)
}

func (h *Handler) DeadLetter(c echo.Context) error {
	return store(c, h.svc.DeadLetter)
}

func store(c echo.Context, call func(context.Context, document.Document) (document.Document, bool, error)) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, created, err := call(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, doc)
}
