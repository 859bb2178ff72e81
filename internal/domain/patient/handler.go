package patient

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
	g := api.Group("/patients")
	g.POST("", h.Register)
	g.POST("/", h.Register)
	g.GET("/search", h.Search)
	g.POST("/:sourceId/merge/:targetId", h.Merge)
	g.GET("/:patientId/export", h.Export)
	g.PUT("/:patientId", h.Update)

	api.GET("/exports/:exportId/download", h.Download)
}

func storeError(err error) error {
	if db.IsNotFound(err) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) Register(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, created, err := h.svc.Register(c.Request().Context(), body)
	if err != nil {
		return storeError(err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, doc)
}

func (h *Handler) Update(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.Update(c.Request().Context(), c.Param("patientId"), body)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) Search(c echo.Context) error {
	bundle, err := h.svc.Search(c.Request().Context(), c.QueryParams(), c.Request().URL.Path)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) Merge(c echo.Context) error {
	body, _, err := document.Bind(c)
	if err != nil {
		return err
	}
	doc, err := h.svc.Merge(c.Request().Context(), c.Param("sourceId"), c.Param("targetId"), body)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) Export(c echo.Context) error {
	doc, err := h.svc.Export(c.Request().Context(), c.Param("patientId"), c.QueryParams())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) Download(c echo.Context) error {
	b, err := h.svc.Download(c.Request().Context(), c.Param("exportId"))
	if err != nil {
		return storeError(err)
	}
	return c.Blob(http.StatusOK, b.ContentType, b.Body)
}
