package utils

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/gomail.v2"

	"github.com/gymdesk/gymdesk_backend/config"
	"github.com/gymdesk/gymdesk_backend/models"
	"github.com/gymdesk/gymdesk_backend/websocket"
)

// SaveNotification saves a notification to the database and returns it
func SaveNotification(db *mongo.Client, userID primitive.ObjectID, title, message, notifType string, data interface{}) (*models.Notification, error) {
	collection := config.GetCollection(db, "notifications")

	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Data:      data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	_, err := collection.InsertOne(context.Background(), notification)
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

// NotifyUser persists a notification for one user and pushes it over the
// event stream if that user is connected. A failed push is not an error:
// the entry is already durable and shows up on the next snapshot fetch.
func NotifyUser(db *mongo.Client, hub *websocket.Hub, userID primitive.ObjectID, title, message, notifType string, data interface{}) error {
	notification, err := SaveNotification(db, userID, title, message, notifType, data)
	if err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}

	if err := hub.NotifyUser(userID, notification); err != nil {
		log.Printf("Notification %s not pushed to user %s: %v", notification.ID.Hex(), userID.Hex(), err)
	}
	return nil
}

// NotifyRoles persists one notification per user holding any of the given
// roles and pushes to the connected ones.
func NotifyRoles(db *mongo.Client, hub *websocket.Hub, roles []string, title, message, notifType string, data interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usersCollection := config.GetCollection(db, "users")
	cursor, err := usersCollection.Find(ctx, bson.M{
		"role":     bson.M{"$in": roles},
		"isActive": true,
	})
	if err != nil {
		return fmt.Errorf("failed to find recipients: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return fmt.Errorf("failed to decode recipients: %w", err)
	}

	for _, user := range users {
		if err := NotifyUser(db, hub, user.ID, title, message, notifType, data); err != nil {
			log.Printf("Failed to notify user %s: %v", user.ID.Hex(), err)
		}
	}
	return nil
}

// SendEmail sends a plain-text email using the configured SMTP server.
// Used for membership approvals and payroll notices; callers treat a failure
// as non-fatal because the in-app notification already went out.
func SendEmail(to, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &smtpPort)
	}
	if smtpHost == "" {
		return fmt.Errorf("SMTP_HOST not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
