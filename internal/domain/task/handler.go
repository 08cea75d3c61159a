package task

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinsched/clinsched/internal/fault"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.PATCH("/tasks/:id/status", h.UpdateStatus)
	api.GET("/surgeries/:id/timeline", h.Timeline)
}

type updateStatusRequest struct {
	Status      string  `json:"status"`
	CompletedBy *string `json:"completed_by,omitempty"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}

	t, err := h.engine.UpdateTaskStatus(c.Request().Context(), id, req.Status, req.CompletedBy)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Timeline(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	tasks, err := h.engine.Timeline(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tasks": tasks, "count": len(tasks)})
}
