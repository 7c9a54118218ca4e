package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gymdesk/gymdesk_backend/config"
	"github.com/gymdesk/gymdesk_backend/models"
	"github.com/gymdesk/gymdesk_backend/utils"
	"github.com/gymdesk/gymdesk_backend/websocket"
)

const dateLayout = "2006-01-02"

// AttendanceController manages clock-ins and the live attendance board
type AttendanceController struct {
	DB     *mongo.Client
	hub    *websocket.Hub
	logger *log.Logger
}

func NewAttendanceController(db *mongo.Client, hub *websocket.Hub) *AttendanceController {
	return &AttendanceController{
		DB:     db,
		hub:    hub,
		logger: log.New(os.Stdout, "[ATTENDANCE] ", log.LstdFlags),
	}
}

// ClockIn opens an attendance record for an active member
func (ac *AttendanceController) ClockIn(c echo.Context) error {
	recordedBy, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req models.ClockInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
	}

	memberID, err := primitive.ObjectIDFromHex(req.MemberID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid member ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var member models.Member
	err = config.GetCollection(ac.DB, "members").FindOne(ctx, bson.M{"_id": memberID}).Decode(&member)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"success": false,
				"message": "Member not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	if member.Status != models.MembershipActive {
		return c.JSON(http.StatusForbidden, map[string]interface{}{
			"success": false,
			"message": "Membership is not active",
		})
	}

	now := time.Now()
	attendanceColl := config.GetCollection(ac.DB, "attendance")

	// Reject a second clock-in while the previous visit is still open
	openCount, err := attendanceColl.CountDocuments(ctx, bson.M{
		"memberId": memberID,
		"date":     now.Format(dateLayout),
		"clockOut": nil,
	})
	if err == nil && openCount > 0 {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"success": false,
			"message": "Member is already clocked in",
		})
	}

	record := models.AttendanceRecord{
		ID:         primitive.NewObjectID(),
		MemberID:   memberID,
		MemberName: member.FullName,
		ClockIn:    now,
		Date:       now.Format(dateLayout),
		RecordedBy: recordedBy,
		CreatedAt:  now,
	}

	if _, err := attendanceColl.InsertOne(ctx, record); err != nil {
		ac.logger.Printf("Error inserting attendance record: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to record clock-in",
		})
	}

	ac.hub.BroadcastToStaff(websocket.Event{
		Event: websocket.EventUserClockIn,
		Data:  record,
	})

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Clocked in",
		"data":    record,
	})
}

// ClockOut closes an open attendance record
func (ac *AttendanceController) ClockOut(c echo.Context) error {
	recordID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid record ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	attendanceColl := config.GetCollection(ac.DB, "attendance")
	now := time.Now()

	var record models.AttendanceRecord
	err = attendanceColl.FindOneAndUpdate(ctx,
		bson.M{"_id": recordID, "clockOut": nil},
		bson.M{"$set": bson.M{"clockOut": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"success": false,
				"message": "Open attendance record not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	ac.hub.BroadcastToStaff(websocket.Event{
		Event: websocket.EventUserClockOut,
		Data:  record,
	})

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Clocked out",
		"data":    record,
	})
}

// List returns attendance records for a day (default today) or a member
func (ac *AttendanceController) List(c echo.Context) error {
	filter := bson.M{}

	date := c.QueryParam("date")
	if memberIDStr := c.QueryParam("memberId"); memberIDStr != "" {
		memberID, err := primitive.ObjectIDFromHex(memberIDStr)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"message": "Invalid member ID",
			})
		}
		filter["memberId"] = memberID
	} else if date == "" {
		date = time.Now().Format(dateLayout)
	}
	if date != "" {
		filter["date"] = date
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "clockIn", Value: -1}})
	cursor, err := config.GetCollection(ac.DB, "attendance").Find(ctx, filter, opts)
	if err != nil {
		ac.logger.Printf("Error listing attendance: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	defer cursor.Close(ctx)

	records := []models.AttendanceRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    records,
	})
}

// Delete removes an attendance record (admin correction)
func (ac *AttendanceController) Delete(c echo.Context) error {
	recordID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid record ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := config.GetCollection(ac.DB, "attendance").DeleteOne(ctx, bson.M{"_id": recordID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	if result.DeletedCount == 0 {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Attendance record not found",
		})
	}

	ac.hub.BroadcastToStaff(websocket.Event{
		Event: websocket.EventAttendanceDeleted,
		Data:  map[string]string{"recordId": recordID.Hex()},
	})

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Attendance record deleted",
	})
}
