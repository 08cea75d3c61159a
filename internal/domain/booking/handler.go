package booking

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinsched/clinsched/internal/fault"
	"github.com/clinsched/clinsched/pkg/pagination"
)

type Handler struct {
	orch *Orchestrator
}

func NewHandler(orch *Orchestrator) *Handler {
	return &Handler{orch: orch}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/bookings", h.CreateBooking)
	api.GET("/bookings/:id", h.GetBooking)
	api.GET("/bookings", h.ListBookings)
	api.DELETE("/bookings/:id", h.CancelBooking)
}

func (h *Handler) CreateBooking(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.orch.CreateBooking(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.orch.GetBooking(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "booking not found")
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBookings(c echo.Context) error {
	pg := pagination.FromContext(c)
	resourceID, err := uuid.Parse(c.QueryParam("resource_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "resource_id is required")
	}
	items, total, err := h.orch.ListBookingsByResource(c.Request().Context(), resourceID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CancelBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.orch.CancelBooking(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
