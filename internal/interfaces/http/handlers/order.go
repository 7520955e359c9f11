// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/coating-shop/internal/domain/order"
	"github.com/your-org/coating-shop/internal/interfaces/http/middleware"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
	log          *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, log *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	// Pricing and seller are sales data
	if !middleware.CanManageSalesFromContext(c) {
		req = req.WithoutSalesFields()
	}

	created, err := h.orderService.CreateOrder(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"data":    created,
	})
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter := order.ListFilter{
		Status: order.Status(c.Query("status")),
		Mode:   order.Mode(c.Query("mode")),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}
	if v, err := strconv.ParseBool(c.Query("include_cancelled")); err == nil {
		filter.IncludeCancelled = v
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data": gin.H{
			"orders": orders,
			"total":  total,
			"page":   filter.Page,
			"limit":  filter.Limit,
		},
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id", "order ID")
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// GetOrderHistory handles GET /orders/:id/history
func (h *OrderHandler) GetOrderHistory(c *gin.Context) {
	orderID, ok := paramID(c, "id", "order ID")
	if !ok {
		return
	}

	entries, err := h.orderService.OrderHistory(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order history retrieved successfully",
		"data":    entries,
	})
}

// GetBalance handles GET /orders/:id/balance
func (h *OrderHandler) GetBalance(c *gin.Context) {
	orderID, ok := paramID(c, "id", "order ID")
	if !ok {
		return
	}

	balance, err := h.orderService.BalanceDue(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Balance retrieved successfully",
		"data":    balance,
	})
}

// RecordPayment handles POST /orders/:id/payments
func (h *OrderHandler) RecordPayment(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id", "order ID")
	if !ok {
		return
	}

	var req order.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	payment, err := h.orderService.RecordPayment(c.Request.Context(), userID, orderID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Payment recorded successfully",
		"data":    payment,
	})
}
