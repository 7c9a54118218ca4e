package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gymdesk/gymdesk_backend/config"
	"github.com/gymdesk/gymdesk_backend/models"
)

// ReceptionController serves the front-desk dashboard
type ReceptionController struct {
	DB     *mongo.Client
	logger *log.Logger
}

func NewReceptionController(db *mongo.Client) *ReceptionController {
	return &ReceptionController{
		DB:     db,
		logger: log.New(os.Stdout, "[RECEPTION] ", log.LstdFlags),
	}
}

// PendingMembers returns the approval queue, oldest request first
func (rc *ReceptionController) PendingMembers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := config.GetCollection(rc.DB, "members").Find(ctx,
		bson.M{"status": models.MembershipPending}, opts)
	if err != nil {
		rc.logger.Printf("Error listing pending members: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	defer cursor.Close(ctx)

	members := []models.Member{}
	if err := cursor.All(ctx, &members); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    members,
	})
}

// Desk returns everything the front desk shows at a glance: today's visits,
// who is currently on the floor, and the size of the approval queue
func (rc *ReceptionController) Desk(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	today := time.Now().Format(dateLayout)
	attendanceColl := config.GetCollection(rc.DB, "attendance")

	opts := options.Find().SetSort(bson.D{{Key: "clockIn", Value: -1}})
	cursor, err := attendanceColl.Find(ctx, bson.M{"date": today}, opts)
	if err != nil {
		rc.logger.Printf("Error listing today's attendance: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	defer cursor.Close(ctx)

	visits := []models.AttendanceRecord{}
	if err := cursor.All(ctx, &visits); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	onFloor := 0
	for _, visit := range visits {
		if visit.ClockOut == nil {
			onFloor++
		}
	}

	pendingCount, err := config.GetCollection(rc.DB, "members").CountDocuments(ctx,
		bson.M{"status": models.MembershipPending})
	if err != nil {
		pendingCount = 0
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"date":            today,
			"visits":          visits,
			"currentlyOnSite": onFloor,
			"pendingRequests": pendingCount,
		},
	})
}
