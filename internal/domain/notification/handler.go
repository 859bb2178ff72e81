package notification

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
	g := api.Group("/notifications")
	g.POST("/send", h.Send)
	g.POST("/templates", h.CreateTemplate)
	g.POST("/bulk", h.Bulk)
}

func (h *Handler) Send(c echo.Context) error {
	return respond(c, http.StatusCreated, h.svc.Send)
}

func (h *Handler) CreateTemplate(c echo.Context) error {
	return respond(c, http.StatusCreated, h.svc.CreateTemplate)
}

func (h *Handler) Bulk(c echo.Context) error {
	return respond(c, http.StatusOK, h.svc.Bulk)
}

func respond(c echo.Context, status int, call func(context.Context, document.Document) (document.Document, error)) error {
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
