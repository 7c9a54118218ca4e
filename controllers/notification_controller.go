package controllers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gymdesk/gymdesk_backend/repositories"
	"github.com/gymdesk/gymdesk_backend/utils"
)

type NotificationController struct {
	db   *mongo.Client
	repo *repositories.NotificationRepository
}

func NewNotificationController(db *mongo.Client) *NotificationController {
	return &NotificationController{
		db:   db,
		repo: repositories.NewNotificationRepository(db),
	}
}

// List returns the caller's notifications, newest first, with the unread count
func (nc *NotificationController) List(c echo.Context) error {
	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var limit int64 = 100
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsed, err := strconv.ParseInt(limitStr, 10, 64); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notifications, err := nc.repo.ListForUser(ctx, userID, limit)
	if err != nil {
		log.Printf("Error listing notifications for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	unread, err := nc.repo.CountUnread(ctx, userID)
	if err != nil {
		log.Printf("Error counting unread notifications for %s: %v", userID.Hex(), err)
		unread = 0
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"notifications": notifications,
			"unreadCount":   unread,
		},
	})
}

// MarkAsRead marks one of the caller's notifications as read
func (nc *NotificationController) MarkAsRead(c echo.Context) error {
	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid notification ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	matched, err := nc.repo.MarkAsRead(ctx, userID, notificationID)
	if err != nil {
		log.Printf("Error marking notification %s read: %v", notificationID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	if matched == 0 {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Notification not found",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Notification marked as read",
	})
}

// MarkAllAsRead marks every notification of the caller as read
func (nc *NotificationController) MarkAllAsRead(c echo.Context) error {
	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	modified, err := nc.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		log.Printf("Error marking all notifications read for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "All notifications marked as read",
		"data":    map[string]interface{}{"modified": modified},
	})
}

// Delete removes one of the caller's notifications
func (nc *NotificationController) Delete(c echo.Context) error {
	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid notification ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	deleted, err := nc.repo.Delete(ctx, userID, notificationID)
	if err != nil {
		log.Printf("Error deleting notification %s: %v", notificationID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	if deleted == 0 {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Notification not found",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Notification deleted",
	})
}

// Clear empties the caller's notification feed
func (nc *NotificationController) Clear(c echo.Context) error {
	userID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	deleted, err := nc.repo.DeleteAllForUser(ctx, userID)
	if err != nil {
		log.Printf("Error clearing notifications for %s: %v", userID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Notifications cleared",
		"data":    map[string]interface{}{"deleted": deleted},
	})
}
