package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/gymdesk/gymdesk_backend/controllers"
	"github.com/gymdesk/gymdesk_backend/middleware"
	"github.com/gymdesk/gymdesk_backend/models"
)

// RegisterMemberRoutes registers member roster and approval routes
func RegisterMemberRoutes(e *echo.Echo, memberController *controllers.MemberController) {
	// Public signup from the marketing site
	e.POST("/api/auth/register", memberController.Register)

	memberGroup := e.Group("/api/members")
	memberGroup.Use(middleware.JWTMiddleware())
	memberGroup.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleReception))

	memberGroup.GET("", memberController.List)
	memberGroup.GET("/:id", memberController.Get)
	memberGroup.PUT("/:id", memberController.Update)
	memberGroup.POST("/:id/approve", memberController.Approve)
	memberGroup.POST("/:id/reject", memberController.Reject)

	// Deleting a membership is admin-only
	adminGroup := e.Group("/api/members")
	adminGroup.Use(middleware.JWTMiddleware())
	adminGroup.Use(middleware.RequireRoles(models.RoleAdmin))
	adminGroup.DELETE("/:id", memberController.Delete)
}
