package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/coating-shop/internal/domain/inventory"
	"github.com/your-org/coating-shop/internal/domain/order"
)

// ProductionHandler handles the production floor endpoints
type ProductionHandler struct {
	fulfillment  *order.Fulfillment
	orderService *order.Service
	log          *logrus.Logger
}

// NewProductionHandler creates a new production handler
func NewProductionHandler(fulfillment *order.Fulfillment, orderService *order.Service, log *logrus.Logger) *ProductionHandler {
	return &ProductionHandler{
		fulfillment:  fulfillment,
		orderService: orderService,
		log:          log,
	}
}

// AdvanceRequest carries the materials consumed when finishing a line
type AdvanceRequest struct {
	Allocations []inventory.Allocation `json:"allocations" binding:"omitempty,dive"`
}

// CancelRequest carries the cancellation reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// BulkStatusRequest carries the target stage of a bulk change
type BulkStatusRequest struct {
	Status order.Status `json:"status" binding:"required,oneof=queued in_production ready delivered"`
}

// GetQueue handles GET /production/queue
func (h *ProductionHandler) GetQueue(c *gin.Context) {
	queue, err := h.orderService.ProductionQueue(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Production queue retrieved successfully",
		"data":    queue,
	})
}

// AdvanceLine handles POST /production/lines/:id/advance
func (h *ProductionHandler) AdvanceLine(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	lineID, ok := paramID(c, "id", "line ID")
	if !ok {
		return
	}

	var req AdvanceRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.fulfillment.Advance(c.Request.Context(), userID, lineID, req.Allocations)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondTransition(c, result)
}

// RevertLine handles POST /production/lines/:id/revert
func (h *ProductionHandler) RevertLine(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	lineID, ok := paramID(c, "id", "line ID")
	if !ok {
		return
	}

	result, err := h.fulfillment.Revert(c.Request.Context(), userID, lineID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondTransition(c, result)
}

// GetLineHistory handles GET /production/lines/:id/history
func (h *ProductionHandler) GetLineHistory(c *gin.Context) {
	lineID, ok := paramID(c, "id", "line ID")
	if !ok {
		return
	}

	entries, err := h.orderService.LineHistory(c.Request.Context(), lineID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Line history retrieved successfully",
		"data":    entries,
	})
}

// AdvanceOrder handles POST /orders/:id/advance
func (h *ProductionHandler) AdvanceOrder(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id", "order ID")
	if !ok {
		return
	}

	var req AdvanceRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.fulfillment.AdvanceOrder(c.Request.Context(), userID, orderID, req.Allocations)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondTransition(c, result)
}

// RevertOrder handles POST /orders/:id/revert
func (h *ProductionHandler) RevertOrder(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id", "order ID")
	if !ok {
		return
	}

	result, err := h.fulfillment.RevertOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondTransition(c, result)
}

// BulkStatus handles POST /orders/:id/bulk-status
func (h *ProductionHandler) BulkStatus(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id", "order ID")
	if !ok {
		return
	}

	var req BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.fulfillment.AdvanceOrderBulk(c.Request.Context(), userID, orderID, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully",
		"data":    result,
	})
}

// CancelOrder handles POST /orders/:id/cancel
func (h *ProductionHandler) CancelOrder(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id", "order ID")
	if !ok {
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cancelled, err := h.fulfillment.Cancel(c.Request.Context(), userID, orderID, req.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    cancelled,
	})
}

func respondTransition(c *gin.Context, result *order.Result) {
	message := "Status updated successfully"
	if !result.Changed {
		message = "Status unchanged"
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    result,
	})
}

// bindOptionalJSON binds the body when one was sent
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}
