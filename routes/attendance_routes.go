package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/gymdesk/gymdesk_backend/controllers"
	"github.com/gymdesk/gymdesk_backend/middleware"
	"github.com/gymdesk/gymdesk_backend/models"
)

// RegisterAttendanceRoutes registers clock-in/out and attendance history routes
func RegisterAttendanceRoutes(e *echo.Echo, attendanceController *controllers.AttendanceController) {
	attendanceGroup := e.Group("/api/attendance")
	attendanceGroup.Use(middleware.JWTMiddleware())
	attendanceGroup.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleReception))

	attendanceGroup.POST("/clock-in", attendanceController.ClockIn)
	attendanceGroup.POST("/clock-out", attendanceController.ClockOut)
	attendanceGroup.GET("", attendanceController.List)

	adminGroup := e.Group("/api/attendance")
	adminGroup.Use(middleware.JWTMiddleware())
	adminGroup.Use(middleware.RequireRoles(models.RoleAdmin))
	adminGroup.DELETE("/:id", attendanceController.Delete)
}
