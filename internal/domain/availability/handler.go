package availability

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinsched/clinsched/pkg/pagination"
)

type Handler struct {
	svc      *Service
	resolver *Resolver
}

func NewHandler(svc *Service, resolver *Resolver) *Handler {
	return &Handler{svc: svc, resolver: resolver}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/templates", h.CreateTemplate)
	api.GET("/templates/:id", h.GetTemplate)
	api.PUT("/templates/:id", h.UpdateTemplate)
	api.DELETE("/templates/:id", h.DeleteTemplate)
	api.GET("/templates", h.ListTemplates)

	api.POST("/resources", h.CreateResource)
	api.GET("/resources/:id", h.GetResource)
	api.PUT("/resources/:id", h.UpdateResource)
	api.GET("/resources", h.ListResources)

	api.GET("/availability/check", h.CheckAvailability)
	api.GET("/availability/slots", h.AvailableSlots)
}

// -- Template Handlers --

func (h *Handler) CreateTemplate(c echo.Context) error {
	var t Template
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateTemplate(c.Request().Context(), &t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.GetTemplate(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "template not found")
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) UpdateTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var t Template
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.ID = id
	if err := h.svc.UpdateTemplate(c.Request().Context(), &t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteTemplate(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	pg := pagination.FromContext(c)
	resourceID, err := uuid.Parse(c.QueryParam("resource_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "resource_id is required")
	}
	items, total, err := h.svc.ListTemplatesByResource(c.Request().Context(), resourceID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Resource Handlers --

func (h *Handler) CreateResource(c echo.Context) error {
	var r Resource
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateResource(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetResource(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.GetResource(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) UpdateResource(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var r Resource
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.ID = id
	if err := h.svc.UpdateResource(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListResources(c echo.Context) error {
	pg := pagination.FromContext(c)
	role := c.QueryParam("role")
	items, total, err := h.svc.ListResourcesByRole(c.Request().Context(), role, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Availability Handlers --

func (h *Handler) CheckAvailability(c echo.Context) error {
	resourceID, err := uuid.Parse(c.QueryParam("resource_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid resource_id")
	}
	location := c.QueryParam("location")
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end must be RFC3339")
	}

	ok, reason, err := h.resolver.CheckAvailability(c.Request().Context(), resourceID, location, start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := map[string]interface{}{"available": ok}
	if reason != "" {
		resp["reason"] = reason
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) AvailableSlots(c echo.Context) error {
	resourceID, err := uuid.Parse(c.QueryParam("resource_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid resource_id")
	}
	location := c.QueryParam("location")
	from, err := time.Parse("2006-01-02", c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
	}
	var durationMin int
	if err := echo.QueryParamsBinder(c).Int("duration", &durationMin).BindError(); err != nil || durationMin <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "duration must be a positive integer")
	}

	slots, err := h.resolver.AvailableSlots(c.Request().Context(), resourceID, location, from, to, durationMin)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"slots": slots, "count": len(slots)})
}
