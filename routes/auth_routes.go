package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/gymdesk/gymdesk_backend/controllers"
	"github.com/gymdesk/gymdesk_backend/middleware"
)

// RegisterAuthRoutes registers login, refresh and session routes
func RegisterAuthRoutes(e *echo.Echo, authController *controllers.AuthController) {
	authGroup := e.Group("/api/auth")

	// Public
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/refresh", authController.Refresh)
	authGroup.GET("/validate", authController.ValidateSession)

	// Authenticated
	protected := e.Group("/api/auth")
	protected.Use(middleware.JWTMiddleware())
	protected.POST("/logout", authController.Logout)
	protected.GET("/me", authController.Me)
}
