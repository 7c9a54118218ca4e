package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/gymdesk/gymdesk_backend/controllers"
	"github.com/gymdesk/gymdesk_backend/middleware"
	"github.com/gymdesk/gymdesk_backend/models"
)

// RegisterAdminRoutes registers the overview dashboard and gym settings routes
func RegisterAdminRoutes(e *echo.Echo, adminController *controllers.AdminController) {
	adminGroup := e.Group("/api/admin")
	adminGroup.Use(middleware.JWTMiddleware())
	adminGroup.Use(middleware.RequireRoles(models.RoleAdmin))

	adminGroup.GET("/overview", adminController.Overview)
	adminGroup.PUT("/settings", adminController.UpdateSettings)

	// Settings are readable by reception too (opening hours, capacity)
	settingsGroup := e.Group("/api/settings")
	settingsGroup.Use(middleware.JWTMiddleware())
	settingsGroup.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleReception))
	settingsGroup.GET("", adminController.GetSettings)
}
