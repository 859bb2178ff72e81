package appointment

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
	g := api.Group("/appointments")
	g.POST("", h.Book)
	g.POST("/", h.Book)
	g.GET("/availability", h.Availability)
	g.POST("/:appointmentId/waitlist", h.Waitlist)
}

func (h *Handler) Book(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, created, err := h.svc.Book(c.Request().Context(), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, doc)
}

func (h *Handler) Availability(c echo.Context) error {
	doc, err := h.svc.Availability(c.Request().Context(), c.QueryParams())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) Waitlist(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.Waitlist(c.Request().Context(), c.Param("appointmentId"), body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}
