package notify

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes notification operations over HTTP.
type Handler struct {
	dispatcher *Dispatcher
}

func NewHandler(d *Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

// RegisterRoutes registers all notification routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/notifications/send", h.HandleSend)
	g.POST("/notifications/send-template", h.HandleSendTemplate)
	g.GET("/notifications/stats", h.HandleStats)
	g.GET("/notifications/:id", h.HandleGet)
	g.GET("/notifications", h.HandleList)
	g.POST("/notifications/:id/retry", h.HandleRetry)
}

type sendRequest struct {
	Channel   Channel  `json:"channel"`
	Recipient string   `json:"recipient"`
	Subject   string   `json:"subject"`
	Body      string   `json:"body"`
	Priority  Priority `json:"priority"`
}

func (h *Handler) HandleSend(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	n := &Notification{
		Channel:   req.Channel,
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Body:      req.Body,
		Priority:  req.Priority,
	}

	// A failed send still returns the notification so the caller sees
	// the ID and error.
	_ = h.dispatcher.Send(c.Request().Context(), n)
	return c.JSON(http.StatusCreated, n)
}

type sendTemplateRequest struct {
	TemplateID string            `json:"template_id"`
	Recipient  string            `json:"recipient"`
	Data       map[string]string `json:"data"`
}

func (h *Handler) HandleSendTemplate(c echo.Context) error {
	var req sendTemplateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	n, err := h.dispatcher.SendFromTemplate(c.Request().Context(), req.TemplateID, req.Data, req.Recipient)
	if err != nil && n == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) HandleGet(c echo.Context) error {
	id := c.Param("id")
	n, err := h.dispatcher.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) HandleList(c echo.Context) error {
	recipient := c.QueryParam("recipient")
	if recipient == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "recipient query parameter is required"})
	}

	list, err := h.dispatcher.ListByRecipient(c.Request().Context(), recipient, 100)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) HandleRetry(c echo.Context) error {
	id := c.Param("id")
	if err := h.dispatcher.Retry(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	n, _ := h.dispatcher.Get(c.Request().Context(), id)
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) HandleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.dispatcher.Stats(c.Request().Context()))
}
