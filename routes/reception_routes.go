package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/gymdesk/gymdesk_backend/controllers"
	"github.com/gymdesk/gymdesk_backend/middleware"
	"github.com/gymdesk/gymdesk_backend/models"
)

// RegisterReceptionRoutes registers the front-desk view routes
func RegisterReceptionRoutes(e *echo.Echo, receptionController *controllers.ReceptionController) {
	receptionGroup := e.Group("/api/reception")
	receptionGroup.Use(middleware.JWTMiddleware())
	receptionGroup.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleReception))

	receptionGroup.GET("/desk", receptionController.Desk)
	receptionGroup.GET("/pending-members", receptionController.PendingMembers)
}
