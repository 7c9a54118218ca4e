package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/gymdesk/gymdesk_backend/controllers"
	"github.com/gymdesk/gymdesk_backend/middleware"
)

// RegisterNotificationRoutes registers the per-user notification inbox routes
func RegisterNotificationRoutes(e *echo.Echo, notificationController *controllers.NotificationController) {
	notificationGroup := e.Group("/api/notifications")
	notificationGroup.Use(middleware.JWTMiddleware())

	notificationGroup.GET("", notificationController.List)
	notificationGroup.PUT("/:id/read", notificationController.MarkAsRead)
	notificationGroup.PUT("/read-all", notificationController.MarkAllAsRead)
	notificationGroup.DELETE("/:id", notificationController.Delete)
	notificationGroup.DELETE("", notificationController.Clear)
}
