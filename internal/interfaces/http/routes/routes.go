// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/coating-shop/internal/config"
	"github.com/your-org/coating-shop/internal/domain/inventory"
	"github.com/your-org/coating-shop/internal/domain/order"
	"github.com/your-org/coating-shop/internal/interfaces/http/handlers"
	"github.com/your-org/coating-shop/internal/interfaces/http/middleware"
)

// Services are the domain services exposed over HTTP
type Services struct {
	Orders      *order.Service
	Fulfillment *order.Fulfillment
	Inventory   *inventory.Service
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, svc Services, cfg *config.Config, log *logrus.Logger) {
	orderHandler := handlers.NewOrderHandler(svc.Orders, log)
	productionHandler := handlers.NewProductionHandler(svc.Fulfillment, svc.Orders, log)

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("", orderHandler.ListOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.GET("/:id/history", orderHandler.GetOrderHistory)
		orders.GET("/:id/balance", orderHandler.GetBalance)

		// Payments are sales data
		sales := orders.Group("")
		sales.Use(middleware.SalesMiddleware())
		{
			sales.POST("/:id/payments", orderHandler.RecordPayment)
		}

		// Status changes
		production := orders.Group("")
		production.Use(middleware.ProductionMiddleware())
		{
			production.POST("/:id/advance", productionHandler.AdvanceOrder)
			production.POST("/:id/revert", productionHandler.RevertOrder)
			production.POST("/:id/bulk-status", productionHandler.BulkStatus)
			production.POST("/:id/cancel", productionHandler.CancelOrder)
		}
	}
}

// SetupProductionRoutes sets up production floor routes
func SetupProductionRoutes(rg *gin.RouterGroup, svc Services, cfg *config.Config, log *logrus.Logger) {
	productionHandler := handlers.NewProductionHandler(svc.Fulfillment, svc.Orders, log)

	production := rg.Group("/production")
	production.Use(middleware.AuthMiddleware(cfg))
	{
		production.GET("/queue", productionHandler.GetQueue)
		production.GET("/lines/:id/history", productionHandler.GetLineHistory)

		operators := production.Group("")
		operators.Use(middleware.ProductionMiddleware())
		{
			operators.POST("/lines/:id/advance", productionHandler.AdvanceLine)
			operators.POST("/lines/:id/revert", productionHandler.RevertLine)
		}
	}
}

// SetupInventoryRoutes sets up inventory routes
func SetupInventoryRoutes(rg *gin.RouterGroup, svc Services, cfg *config.Config, log *logrus.Logger) {
	inventoryHandler := handlers.NewInventoryHandler(svc.Inventory, log)

	inv := rg.Group("/inventory")
	inv.Use(middleware.AuthMiddleware(cfg))
	{
		inv.GET("/items", inventoryHandler.ListItems)
		inv.GET("/items/:id", inventoryHandler.GetItem)
		inv.GET("/items/:id/movements", inventoryHandler.GetMovements)
		inv.GET("/low-stock", inventoryHandler.GetLowStock)

		stock := inv.Group("")
		stock.Use(middleware.ProductionMiddleware())
		{
			stock.POST("/items", inventoryHandler.CreateItem)
			stock.PUT("/items/:id", inventoryHandler.UpdateItem)
			stock.POST("/items/:id/adjust", inventoryHandler.AdjustStock)
			stock.POST("/purchases", inventoryHandler.RecordPurchase)
			stock.DELETE("/purchases/:reference", inventoryHandler.ReversePurchase)
		}
	}
}

// SetupRoutes sets up all API routes
func SetupRoutes(rg *gin.RouterGroup, svc Services, cfg *config.Config, log *logrus.Logger) {
	SetupOrderRoutes(rg, svc, cfg, log)
	SetupProductionRoutes(rg, svc, cfg, log)
	SetupInventoryRoutes(rg, svc, cfg, log)
}
