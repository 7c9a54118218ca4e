package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gymdesk/gymdesk_backend/middleware"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket authenticates and upgrades an event-stream connection.
// Credentials arrive as query parameters (userId, role, token) because
// browser WebSocket clients cannot set an Authorization header.
func HandleWebSocket(c echo.Context, hub *Hub) error {
	userID := c.QueryParam("userId")
	role := c.QueryParam("role")
	token := c.QueryParam("token")

	claims, err := middleware.ParseToken(token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Invalid or expired token",
		})
	}

	// The connection is scoped to the identity the token proves, not to
	// whatever the query string claims.
	if claims.UserID != userID || claims.Role != role {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Token does not match the requested identity",
		})
	}

	objID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid user ID",
		})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		UserID: objID,
		Role:   claims.Role,
		Conn:   conn,
	}

	hub.Register(client)

	client.WriteEvent(Event{
		Event: EventConnected,
		Data:  map[string]string{"userId": claims.UserID, "role": claims.Role},
	})

	// Read loop: the dashboards never send application messages, but reading
	// is what detects the peer going away.
	go func() {
		defer func() {
			hub.Unregister(client)
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()

	return nil
}
