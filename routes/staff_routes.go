package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/gymdesk/gymdesk_backend/controllers"
	"github.com/gymdesk/gymdesk_backend/middleware"
	"github.com/gymdesk/gymdesk_backend/models"
)

// RegisterStaffRoutes registers staff management, notes and payroll routes.
// Everything here is admin-only.
func RegisterStaffRoutes(e *echo.Echo, staffController *controllers.StaffController) {
	staffGroup := e.Group("/api/staff")
	staffGroup.Use(middleware.JWTMiddleware())
	staffGroup.Use(middleware.RequireRoles(models.RoleAdmin))

	staffGroup.POST("", staffController.Create)
	staffGroup.GET("", staffController.List)
	staffGroup.POST("/:id/notes", staffController.AddNote)
	staffGroup.GET("/:id/notes", staffController.ListNotes)
	staffGroup.POST("/payroll", staffController.RunPayroll)
	staffGroup.GET("/payroll", staffController.ListPayroll)
}
