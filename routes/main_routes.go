package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gymdesk/gymdesk_backend/controllers"
	"github.com/gymdesk/gymdesk_backend/websocket"
)

// SetupRoutes wires every controller and the websocket endpoint onto
// the echo instance
func SetupRoutes(e *echo.Echo, db *mongo.Client, hub *websocket.Hub) {
	authController := controllers.NewAuthController(db)
	memberController := controllers.NewMemberController(db, hub)
	attendanceController := controllers.NewAttendanceController(db, hub)
	financeController := controllers.NewFinanceController(db, hub)
	staffController := controllers.NewStaffController(db, hub)
	notificationController := controllers.NewNotificationController(db)
	adminController := controllers.NewAdminController(db, hub)
	receptionController := controllers.NewReceptionController(db)

	RegisterAuthRoutes(e, authController)
	RegisterMemberRoutes(e, memberController)
	RegisterAttendanceRoutes(e, attendanceController)
	RegisterFinanceRoutes(e, financeController)
	RegisterStaffRoutes(e, staffController)
	RegisterNotificationRoutes(e, notificationController)
	RegisterAdminRoutes(e, adminController)
	RegisterReceptionRoutes(e, receptionController)

	// Realtime channel. Auth happens inside the handshake via the token
	// query parameter, so no JWT middleware here.
	e.GET("/api/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(c, hub)
	})
}
