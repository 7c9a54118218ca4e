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
	"github.com/gymdesk/gymdesk_backend/utils"
	"github.com/gymdesk/gymdesk_backend/websocket"
)

// AdminController serves the overview dashboard and gym settings
type AdminController struct {
	DB     *mongo.Client
	hub    *websocket.Hub
	logger *log.Logger
}

func NewAdminController(db *mongo.Client, hub *websocket.Hub) *AdminController {
	return &AdminController{
		DB:     db,
		hub:    hub,
		logger: log.New(os.Stdout, "[ADMIN] ", log.LstdFlags),
	}
}

// Overview returns the aggregate counters behind the admin overview dashboard
func (adc *AdminController) Overview(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	stats, err := adc.computeStats(ctx)
	if err != nil {
		adc.logger.Printf("Error computing overview stats: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    stats,
	})
}

func (adc *AdminController) computeStats(ctx context.Context) (*models.OverviewStats, error) {
	membersColl := config.GetCollection(adc.DB, "members")

	total, err := membersColl.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	active, err := membersColl.CountDocuments(ctx, bson.M{"status": models.MembershipActive})
	if err != nil {
		return nil, err
	}
	pending, err := membersColl.CountDocuments(ctx, bson.M{"status": models.MembershipPending})
	if err != nil {
		return nil, err
	}
	expired, err := membersColl.CountDocuments(ctx, bson.M{"status": models.MembershipExpired})
	if err != nil {
		return nil, err
	}

	attendanceColl := config.GetCollection(adc.DB, "attendance")
	today := time.Now().Format(dateLayout)
	checkedIn, err := attendanceColl.CountDocuments(ctx, bson.M{"date": today})
	if err != nil {
		return nil, err
	}
	inGym, err := attendanceColl.CountDocuments(ctx, bson.M{"date": today, "clockOut": nil})
	if err != nil {
		return nil, err
	}

	staffCount, err := config.GetCollection(adc.DB, "staff").CountDocuments(ctx, bson.M{"isActive": true})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var income, expenses float64
	cursor, err := config.GetCollection(adc.DB, "transactions").Find(ctx, bson.M{
		"createdAt": bson.M{"$gte": monthStart},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var t models.Transaction
		if err := cursor.Decode(&t); err != nil {
			return nil, err
		}
		switch t.Kind {
		case models.TransactionPayment:
			income += t.Amount
		case models.TransactionExpense:
			expenses += t.Amount
		case models.TransactionRefund:
			expenses += t.Amount
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return &models.OverviewStats{
		TotalMembers:    int(total),
		ActiveMembers:   int(active),
		PendingMembers:  int(pending),
		ExpiredMembers:  int(expired),
		CheckedInToday:  int(checkedIn),
		CurrentlyInGym:  int(inGym),
		MonthIncome:     income,
		MonthExpenses:   expenses,
		StaffCount:      int(staffCount),
		GeneratedAtUnix: time.Now().Unix(),
	}, nil
}

// GetSettings returns the club-wide settings document
func (adc *AdminController) GetSettings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var settings models.GymSettings
	err := config.GetCollection(adc.DB, "settings").FindOne(ctx, bson.M{}).Decode(&settings)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Sensible defaults until an admin saves the first version
			settings = models.GymSettings{
				Name:         "GymDesk",
				OpeningHours: "06:00-23:00",
				Capacity:     150,
				Currency:     "USD",
			}
		} else {
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"message": "Database error",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    settings,
	})
}

// UpdateSettings upserts the settings document and notifies every dashboard
func (adc *AdminController) UpdateSettings(c echo.Context) error {
	updaterID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req models.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
	}

	set := bson.M{"updatedBy": updaterID, "updatedAt": time.Now()}
	if req.Name != "" {
		set["name"] = utils.SanitizeInput(req.Name)
	}
	if req.OpeningHours != "" {
		set["openingHours"] = req.OpeningHours
	}
	if req.Capacity > 0 {
		set["capacity"] = req.Capacity
	}
	if req.Currency != "" {
		set["currency"] = req.Currency
	}
	if req.ContactEmail != "" {
		email, err := utils.SanitizeEmail(req.ContactEmail)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"message": "Invalid contact email",
			})
		}
		set["contactEmail"] = email
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var settings models.GymSettings
	err = config.GetCollection(adc.DB, "settings").FindOneAndUpdate(ctx, bson.M{}, bson.M{"$set": set}, opts).Decode(&settings)
	if err != nil {
		adc.logger.Printf("Error updating settings: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to update settings",
		})
	}

	adc.hub.BroadcastToStaff(websocket.Event{
		Event: websocket.EventSettingsUpdated,
		Data:  settings,
	})

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Settings updated",
		"data":    settings,
	})
}
