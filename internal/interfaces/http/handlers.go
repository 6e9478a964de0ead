package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/minhvu/order-approval/internal/application/port"
	"github.com/minhvu/order-approval/internal/application/service"
	"github.com/minhvu/order-approval/internal/domain/workflow"
)

// actorHeader carries the acting user's id. Identity is provisioned through
// configuration; there is no session or token layer in front of it.
const actorHeader = "X-User-ID"

// Response is the standard API envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Handlers holds the HTTP request handlers
type Handlers struct {
	orderService        service.OrderService
	notificationService service.NotificationService
	metricsService      service.MetricsService
	logger              Logger
}

// NewHandlers creates request handlers backed by the given services
func NewHandlers(
	orderService service.OrderService,
	notificationService service.NotificationService,
	metricsService service.MetricsService,
	logger Logger,
) *Handlers {
	return &Handlers{
		orderService:        orderService,
		notificationService: notificationService,
		metricsService:      metricsService,
		logger:              logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"status": "healthy"},
	})
}

// createOrderRequest is the POST /api/orders payload
type createOrderRequest struct {
	Customer struct {
		Name    string `json:"name" binding:"required"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	} `json:"customer" binding:"required"`
	Items []struct {
		Name           string `json:"name" binding:"required"`
		Description    string `json:"description"`
		SKU            string `json:"sku"`
		UnitPriceCents int64  `json:"unit_price_cents"`
		Quantity       int    `json:"quantity" binding:"required"`
	} `json:"items" binding:"required"`
}

// CreateOrder handles POST /api/orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid request: " + err.Error()})
		return
	}

	in := service.CreateOrderInput{
		Customer: service.CustomerInfo{
			Name:    req.Customer.Name,
			Phone:   req.Customer.Phone,
			Address: req.Customer.Address,
		},
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.ItemInput{
			Name:           it.Name,
			Description:    it.Description,
			SKU:            it.SKU,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
		})
	}

	order, err := h.orderService.Create(c.Request.Context(), actorID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: order})
}

// transitionRequest is the POST /api/orders/:id/transitions payload
type transitionRequest struct {
	Action         string `json:"action" binding:"required"`
	Reason         string `json:"reason"`
	Notes          string `json:"notes"`
	TrackingNumber string `json:"tracking_number"`
	Customer       *struct {
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	} `json:"customer"`
	Items []struct {
		Name           string `json:"name"`
		Description    string `json:"description"`
		SKU            string `json:"sku"`
		UnitPriceCents int64  `json:"unit_price_cents"`
		Quantity       int    `json:"quantity"`
	} `json:"items"`
	Amendments []struct {
		ItemID          int64 `json:"item_id"`
		ShippedQuantity int   `json:"shipped_quantity"`
	} `json:"amendments"`
	ActualAmountCents *int64 `json:"actual_amount_cents"`
}

// Transition handles POST /api/orders/:id/transitions
func (h *Handlers) Transition(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid request: " + err.Error()})
		return
	}

	in := service.TransitionInput{
		Reason:            req.Reason,
		Notes:             req.Notes,
		TrackingNumber:    req.TrackingNumber,
		ActualAmountCents: req.ActualAmountCents,
	}
	if req.Customer != nil {
		in.Customer = &service.CustomerInfo{
			Name:    req.Customer.Name,
			Phone:   req.Customer.Phone,
			Address: req.Customer.Address,
		}
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.ItemInput{
			Name:           it.Name,
			Description:    it.Description,
			SKU:            it.SKU,
			UnitPriceCents: it.UnitPriceCents,
			Quantity:       it.Quantity,
		})
	}
	for _, a := range req.Amendments {
		in.Amendments = append(in.Amendments, service.AmendmentItem{
			ItemID:          a.ItemID,
			ShippedQuantity: a.ShippedQuantity,
		})
	}

	order, err := h.orderService.Transition(c.Request.Context(), actorID, orderID, workflow.Action(req.Action), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: order})
}

// GetOrder handles GET /api/orders/:id
func (h *Handlers) GetOrder(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), actorID, orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: order})
}

// ListOrders handles GET /api/orders
func (h *Handlers) ListOrders(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	limit := h.queryInt(c, "limit", 50)
	offset := h.queryInt(c, "offset", 0)

	orders, err := h.orderService.ListOrders(c.Request.Context(), actorID, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"orders": orders,
			"count":  len(orders),
		},
	})
}

// GetHistory handles GET /api/orders/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	orderID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.orderService.GetHistory(c.Request.Context(), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// Dashboard handles GET /api/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	dash, err := h.metricsService.Dashboard(c.Request.Context(), actorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: dash})
}

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"
	limit := h.queryInt(c, "limit", 50)
	offset := h.queryInt(c, "offset", 0)

	notifications, err := h.notificationService.List(c.Request.Context(), actorID, unreadOnly, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	unread, err := h.notificationService.CountUnread(c.Request.Context(), actorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"notifications": notifications,
			"unread_count":  unread,
		},
	})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), actorID, id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkAllRead(c.Request.Context(), actorID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// DeleteNotification handles DELETE /api/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), actorID, id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// actor extracts the acting user id from the request header
func (h *Handlers) actor(c *gin.Context) (string, bool) {
	actorID := c.GetHeader(actorHeader)
	if actorID == "" {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: actorHeader + " header is required"})
		return "", false
	}
	return actorID, true
}

// pathID parses a numeric path parameter
func (h *Handlers) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "Invalid " + name + " parameter"})
		return 0, false
	}
	return id, true
}

// queryInt parses an optional numeric query parameter
func (h *Handlers) queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// respondError maps service and domain errors onto HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: err.Error()})
	case errors.Is(err, port.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "Not found"})
	case errors.Is(err, port.ErrConflict):
		c.JSON(http.StatusConflict, Response{Success: false, Error: "The order was modified concurrently, reload and retry"})
	case errors.Is(err, workflow.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrValidation), errors.Is(err, workflow.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Request failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "Internal server error"})
	}
}
