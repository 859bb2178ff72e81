package observation

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
	g := api.Group("/observations")
	g.POST("", h.Create)
	g.POST("/", h.Create)
	g.POST("/lab-results", h.LabResults)
	g.GET("/lab-results", h.LabResults)
	g.POST("/alerts/configure", h.ConfigureAlert)
	g.GET("/:patientId/trends", h.Trends)
}

func (h *Handler) Create(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, created, err := h.svc.Create(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, doc)
}

func (h *Handler) LabResults(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	bundle, err := h.svc.LabResults(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) Trends(c echo.Context) error {
	doc, err := h.svc.Trends(c.Request().Context(), c.Param("patientId"), c.QueryParams())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) ConfigureAlert(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.ConfigureAlert(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}
