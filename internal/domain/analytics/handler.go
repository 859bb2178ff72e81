package analytics

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
	g := api.Group("/analytics")
	g.POST("/risk-score", h.RiskScore)
	g.POST("/ml/models/train", h.TrainModel)
	g.POST("/ml/alerts/personalized", h.PersonalizedAlert)
	g.POST("/ml/models/:modelId/versions", h.ModelVersion)
	g.GET("/analytics/trends", h.Trends)
	g.POST("/ml/predictions/link-fhir", h.LinkFHIR)
}

func (h *Handler) RiskScore(c echo.Context) error {
	return respond(c, http.StatusCreated, h.svc.RiskScore)
}

func (h *Handler) TrainModel(c echo.Context) error {
	return respond(c, http.StatusAccepted, h.svc.TrainModel)
}

func (h *Handler) PersonalizedAlert(c echo.Context) error {
	return respond(c, http.StatusCreated, h.svc.PersonalizedAlert)
}

func (h *Handler) ModelVersion(c echo.Context) error {
	modelID := c.Param("modelId")
	return respond(c, http.StatusOK, func(ctx context.Context, body document.Document) (document.Document, error) {
		return h.svc.ModelVersion(ctx, modelID, body)
	})
}

func (h *Handler) Trends(c echo.Context) error {
	doc, err := h.svc.Trends(c.Request().Context(), c.QueryParams())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) LinkFHIR(c echo.Context) error {
	return respond(c, http.StatusOK, h.svc.LinkFHIR)
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
