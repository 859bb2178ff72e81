package gateway

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

// RegisterRoutes mounts the gateway on the FHIR base group (/fhir/R4).
func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	fhirGroup.GET("/metadata", h.Metadata)
	fhirGroup.GET("/Patient/:patientId", h.ReadPatient)
	fhirGroup.POST("", h.Batch)
	fhirGroup.POST("/", h.Batch)
}

func (h *Handler) Metadata(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Metadata(c.QueryParams()))
}

func (h *Handler) ReadPatient(c echo.Context) error {
	res, err := h.svc.ReadPatient(c.Request().Context(), c.Param("patientId"), c.QueryParams())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Batch(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.svc.Batch(c.Request().Context(), body))
}
