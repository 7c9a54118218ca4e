package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/gymdesk/gymdesk_backend/controllers"
	"github.com/gymdesk/gymdesk_backend/middleware"
	"github.com/gymdesk/gymdesk_backend/models"
)

// RegisterFinanceRoutes registers the transaction ledger and summary routes
func RegisterFinanceRoutes(e *echo.Echo, financeController *controllers.FinanceController) {
	financeGroup := e.Group("/api/finance")
	financeGroup.Use(middleware.JWTMiddleware())
	financeGroup.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleReception))

	financeGroup.POST("/transactions", financeController.Create)
	financeGroup.GET("/transactions", financeController.List)

	adminGroup := e.Group("/api/finance")
	adminGroup.Use(middleware.JWTMiddleware())
	adminGroup.Use(middleware.RequireRoles(models.RoleAdmin))
	adminGroup.GET("/summary", financeController.Summary)
}
