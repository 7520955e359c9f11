// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/coating-shop/internal/domain/inventory"
)

// InventoryHandler handles inventory endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
	log              *logrus.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventory.Service, log *logrus.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		log:              log,
	}
}

// ListItems handles GET /inventory/items
func (h *InventoryHandler) ListItems(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))

	items, err := h.inventoryService.ListItems(c.Request.Context(), includeInactive)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Inventory items retrieved successfully",
		"data":    items,
	})
}

// GetItem handles GET /inventory/items/:id
func (h *InventoryHandler) GetItem(c *gin.Context) {
	itemID, ok := paramID(c, "id", "item ID")
	if !ok {
		return
	}

	item, err := h.inventoryService.GetItem(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Inventory item retrieved successfully",
		"data":    item,
	})
}

// CreateItem handles POST /inventory/items
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req inventory.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := h.inventoryService.CreateItem(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Inventory item created successfully",
		"data":    item,
	})
}

// UpdateItem handles PUT /inventory/items/:id
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	itemID, ok := paramID(c, "id", "item ID")
	if !ok {
		return
	}

	var req inventory.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := h.inventoryService.UpdateItem(c.Request.Context(), itemID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Inventory item updated successfully",
		"data":    item,
	})
}

// GetMovements handles GET /inventory/items/:id/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	itemID, ok := paramID(c, "id", "item ID")
	if !ok {
		return
	}

	movements, err := h.inventoryService.Movements(c.Request.Context(), itemID, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock movements retrieved successfully",
		"data":    movements,
	})
}

// GetLowStock handles GET /inventory/low-stock
func (h *InventoryHandler) GetLowStock(c *gin.Context) {
	items, err := h.inventoryService.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Low stock items retrieved successfully",
		"data":    items,
	})
}

// AdjustStock handles POST /inventory/items/:id/adjust
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	itemID, ok := paramID(c, "id", "item ID")
	if !ok {
		return
	}

	var req inventory.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	movement, err := h.inventoryService.ManualAdjust(c.Request.Context(), userID, itemID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Stock adjusted successfully",
		"data":    movement,
	})
}

// RecordPurchase handles POST /inventory/purchases
func (h *InventoryHandler) RecordPurchase(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req inventory.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	movements, err := h.inventoryService.RecordPurchase(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Purchase recorded successfully",
		"data":    movements,
	})
}

// ReversePurchase handles DELETE /inventory/purchases/:reference
func (h *InventoryHandler) ReversePurchase(c *gin.Context) {
	referenceID, ok := paramID(c, "reference", "purchase reference")
	if !ok {
		return
	}

	reversed, err := h.inventoryService.ReversePurchase(c.Request.Context(), referenceID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase reversed successfully",
		"data":    gin.H{"reversed_movements": reversed},
	})
}
