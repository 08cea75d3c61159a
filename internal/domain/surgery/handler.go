package surgery

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinsched/clinsched/internal/fault"
	"github.com/clinsched/clinsched/pkg/pagination"
)

type Handler struct {
	svc  *Service
	gate *Gate
}

func NewHandler(svc *Service, gate *Gate) *Handler {
	return &Handler{svc: svc, gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/surgeries", h.CreateSurgery)
	api.GET("/surgeries/:id", h.GetSurgery)
	api.GET("/surgeries", h.ListSurgeries)
	api.GET("/surgeries/:id/readiness", h.Readiness)
	api.POST("/surgeries/:id/status", h.UpdateStatus)
	api.POST("/surgeries/:id/consultation/complete", h.CompleteConsultation)
	api.GET("/surgeries/:id/requirements", h.ListRequirements)
	api.POST("/surgeries/:id/requirements/:type/submit", h.SubmitRequirement)
	api.POST("/surgeries/:id/requirements/:type/verify", h.VerifyRequirement)
}

type createSurgeryRequest struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	SurgeonID     uuid.UUID  `json:"surgeon_id"`
	BookingID     *uuid.UUID `json:"booking_id,omitempty"`
	ProcedureCode string     `json:"procedure_code"`
	Location      string     `json:"location"`
	SurgeryDate   time.Time  `json:"surgery_date"`
}

func (h *Handler) CreateSurgery(c echo.Context) error {
	var req createSurgeryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	surg := &Surgery{
		PatientID:     req.PatientID,
		SurgeonID:     req.SurgeonID,
		BookingID:     req.BookingID,
		ProcedureCode: req.ProcedureCode,
		Location:      req.Location,
		SurgeryDate:   req.SurgeryDate,
	}
	if err := h.svc.CreateSurgery(c.Request().Context(), surg); err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, surg)
}

func (h *Handler) GetSurgery(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	surg, err := h.svc.GetSurgery(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "surgery not found")
	}
	return c.JSON(http.StatusOK, surg)
}

func (h *Handler) ListSurgeries(c echo.Context) error {
	pg := pagination.FromContext(c)
	status := c.QueryParam("status")
	if status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}
	items, total, err := h.svc.ListByStatus(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Readiness(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ready, reasons, err := h.gate.Validate(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	resp := map[string]interface{}{"ready": ready}
	if len(reasons) > 0 {
		resp["reasons"] = reasons
	}
	return c.JSON(http.StatusOK, resp)
}

type updateStatusRequest struct {
	Status string `json:"status"`
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
	surg, err := h.gate.HandleStatusUpdate(c.Request().Context(), id, req.Status)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, surg)
}

func (h *Handler) CompleteConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	surg, err := h.svc.CompleteConsultation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, surg)
}

func (h *Handler) ListRequirements(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	reqs, err := h.svc.ListRequirements(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"requirements": reqs, "count": len(reqs)})
}

func (h *Handler) SubmitRequirement(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.svc.SubmitRequirement(c.Request().Context(), id, c.Param("type"))
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) VerifyRequirement(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.svc.VerifyRequirement(c.Request().Context(), id, c.Param("type"))
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, req)
}
