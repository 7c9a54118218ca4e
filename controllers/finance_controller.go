package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
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

// FinanceController manages the financial ledger
type FinanceController struct {
	DB     *mongo.Client
	hub    *websocket.Hub
	logger *log.Logger
}

func NewFinanceController(db *mongo.Client, hub *websocket.Hub) *FinanceController {
	return &FinanceController{
		DB:     db,
		hub:    hub,
		logger: log.New(os.Stdout, "[FINANCE] ", log.LstdFlags),
	}
}

// Create records a ledger entry and pushes it to the finance dashboards
func (fc *FinanceController) Create(c echo.Context) error {
	recordedBy, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req models.CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	transaction := models.Transaction{
		ID:         primitive.NewObjectID(),
		Kind:       req.Kind,
		Amount:     req.Amount,
		Method:     req.Method,
		Reference:  uuid.NewString(),
		Note:       utils.SanitizeInput(req.Note),
		RecordedBy: recordedBy,
		CreatedAt:  time.Now(),
	}

	if req.MemberID != "" {
		memberID, err := primitive.ObjectIDFromHex(req.MemberID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"message": "Invalid member ID",
			})
		}
		var member models.Member
		if err := config.GetCollection(fc.DB, "members").FindOne(ctx, bson.M{"_id": memberID}).Decode(&member); err == nil {
			transaction.MemberID = memberID
			transaction.MemberName = member.FullName
		}
	}

	if _, err := config.GetCollection(fc.DB, "transactions").InsertOne(ctx, transaction); err != nil {
		fc.logger.Printf("Error inserting transaction: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to record transaction",
		})
	}

	fc.hub.BroadcastToStaff(websocket.Event{
		Event: websocket.EventTransactionAdded,
		Data:  transaction,
	})
	// Counters on the overview dashboard change with every ledger entry
	fc.hub.BroadcastToRoles(websocket.Event{Event: websocket.EventStatsUpdated}, models.RoleAdmin)

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Transaction recorded",
		"data":    transaction,
	})
}

// List returns ledger entries, newest first, optionally filtered by kind
// and bounded by from/to dates
func (fc *FinanceController) List(c echo.Context) error {
	filter := bson.M{}
	if kind := c.QueryParam("kind"); kind != "" {
		filter["kind"] = kind
	}

	createdAt := bson.M{}
	if from := c.QueryParam("from"); from != "" {
		if t, err := time.Parse(dateLayout, from); err == nil {
			createdAt["$gte"] = t
		}
	}
	if to := c.QueryParam("to"); to != "" {
		if t, err := time.Parse(dateLayout, to); err == nil {
			createdAt["$lt"] = t.Add(24 * time.Hour)
		}
	}
	if len(createdAt) > 0 {
		filter["createdAt"] = createdAt
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(500)
	cursor, err := config.GetCollection(fc.DB, "transactions").Find(ctx, filter, opts)
	if err != nil {
		fc.logger.Printf("Error listing transactions: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	defer cursor.Close(ctx)

	transactions := []models.Transaction{}
	if err := cursor.All(ctx, &transactions); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    transactions,
	})
}

// Summary aggregates the ledger over a period (default: current month)
func (fc *FinanceController) Summary(c echo.Context) error {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)

	if fromStr := c.QueryParam("from"); fromStr != "" {
		if t, err := time.Parse(dateLayout, fromStr); err == nil {
			from = t
		}
	}
	if toStr := c.QueryParam("to"); toStr != "" {
		if t, err := time.Parse(dateLayout, toStr); err == nil {
			to = t.Add(24 * time.Hour)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := fc.summarize(ctx, from, to)
	if err != nil {
		fc.logger.Printf("Error summarizing ledger: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    summary,
	})
}

func (fc *FinanceController) summarize(ctx context.Context, from, to time.Time) (*models.FinanceSummary, error) {
	cursor, err := config.GetCollection(fc.DB, "transactions").Find(ctx, bson.M{
		"createdAt": bson.M{"$gte": from, "$lt": to},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	summary := models.FinanceSummary{From: from, To: to}
	for cursor.Next(ctx) {
		var t models.Transaction
		if err := cursor.Decode(&t); err != nil {
			return nil, err
		}
		summary.Transactions++
		switch t.Kind {
		case models.TransactionPayment:
			summary.Income += t.Amount
		case models.TransactionExpense:
			summary.Expenses += t.Amount
		case models.TransactionRefund:
			summary.Refunds += t.Amount
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	summary.Balance = summary.Income - summary.Expenses - summary.Refunds
	return &summary, nil
}
