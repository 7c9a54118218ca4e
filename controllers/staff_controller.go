package controllers

import (
	"context"
	"fmt"
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
	"golang.org/x/crypto/bcrypt"

	"github.com/gymdesk/gymdesk_backend/config"
	"github.com/gymdesk/gymdesk_backend/models"
	"github.com/gymdesk/gymdesk_backend/repositories"
	"github.com/gymdesk/gymdesk_backend/utils"
	"github.com/gymdesk/gymdesk_backend/websocket"
)

// StaffController manages employee records, notes and payroll
type StaffController struct {
	DB     *mongo.Client
	users  *repositories.UserRepository
	hub    *websocket.Hub
	logger *log.Logger
}

func NewStaffController(db *mongo.Client, hub *websocket.Hub) *StaffController {
	return &StaffController{
		DB:     db,
		users:  repositories.NewUserRepository(db),
		hub:    hub,
		logger: log.New(os.Stdout, "[STAFF] ", log.LstdFlags),
	}
}

// Create registers an employee: a login account plus a staff record
func (sc *StaffController) Create(c echo.Context) error {
	var req models.CreateStaffRequest
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

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid email format",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usersColl := config.GetCollection(sc.DB, "users")
	count, err := usersColl.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"success": false,
			"message": "Email already registered",
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to process password",
		})
	}

	role := models.RoleReception
	if req.Position == "trainer" {
		role = models.RoleTrainer
	}

	now := time.Now()
	user := models.User{
		Email:     email,
		Password:  string(hashed),
		FirstName: utils.SanitizeInput(req.FirstName),
		LastName:  utils.SanitizeInput(req.LastName),
		Role:      role,
		IsActive:  true,
	}
	if err := sc.users.Insert(ctx, &user); err != nil {
		sc.logger.Printf("Error inserting staff user: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to create account",
		})
	}

	staff := models.StaffMember{
		ID:        primitive.NewObjectID(),
		UserID:    user.ID,
		FullName:  user.FullName(),
		Position:  req.Position,
		Salary:    req.Salary,
		HiredAt:   now,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := config.GetCollection(sc.DB, "staff").InsertOne(ctx, staff); err != nil {
		usersColl.DeleteOne(ctx, bson.M{"_id": user.ID})
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to create staff record",
		})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Staff member created",
		"data":    staff,
	})
}

// List returns all staff records
func (sc *StaffController) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "fullName", Value: 1}})
	cursor, err := config.GetCollection(sc.DB, "staff").Find(ctx, bson.M{}, opts)
	if err != nil {
		sc.logger.Printf("Error listing staff: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	defer cursor.Close(ctx)

	staff := []models.StaffMember{}
	if err := cursor.All(ctx, &staff); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    staff,
	})
}

// AddNote attaches a note to a staff member and pushes it to the staff board
func (sc *StaffController) AddNote(c echo.Context) error {
	authorID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	staffID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid staff ID",
		})
	}

	var req models.StaffNoteRequest
	if err := c.Bind(&req); err != nil || req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Note text is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var staff models.StaffMember
	if err := config.GetCollection(sc.DB, "staff").FindOne(ctx, bson.M{"_id": staffID}).Decode(&staff); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"success": false,
				"message": "Staff member not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	author, err := utils.GetUserFromToken(c, sc.DB)
	authorName := ""
	if err == nil {
		authorName = author.FullName()
	}

	note := models.StaffNote{
		ID:        primitive.NewObjectID(),
		StaffID:   staffID,
		AuthorID:  authorID,
		Author:    authorName,
		Text:      utils.SanitizeInput(req.Text),
		CreatedAt: time.Now(),
	}

	if _, err := config.GetCollection(sc.DB, "staffNotes").InsertOne(ctx, note); err != nil {
		sc.logger.Printf("Error inserting staff note: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to add note",
		})
	}

	sc.hub.BroadcastToRoles(websocket.Event{
		Event: websocket.EventStaffNoteAdded,
		Data:  note,
	}, models.RoleAdmin)

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Note added",
		"data":    note,
	})
}

// ListNotes returns the notes for one staff member, newest first
func (sc *StaffController) ListNotes(c echo.Context) error {
	staffID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid staff ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := config.GetCollection(sc.DB, "staffNotes").Find(ctx, bson.M{"staffId": staffID}, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	defer cursor.Close(ctx)

	notes := []models.StaffNote{}
	if err := cursor.All(ctx, &notes); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    notes,
	})
}

// RunPayroll creates a payroll entry for a period, marks it paid at once,
// and mirrors the payment into the expense ledger
func (sc *StaffController) RunPayroll(c echo.Context) error {
	paidBy, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	var req models.PayrollRequest
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

	staffID, err := primitive.ObjectIDFromHex(req.StaffID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid staff ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var staff models.StaffMember
	if err := config.GetCollection(sc.DB, "staff").FindOne(ctx, bson.M{"_id": staffID}).Decode(&staff); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"success": false,
				"message": "Staff member not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	payrollColl := config.GetCollection(sc.DB, "payroll")

	// One payroll entry per staff member per period
	count, err := payrollColl.CountDocuments(ctx, bson.M{"staffId": staffID, "period": req.Period})
	if err == nil && count > 0 {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"success": false,
			"message": "Payroll already run for this period",
		})
	}

	now := time.Now()
	entry := models.PayrollEntry{
		ID:        primitive.NewObjectID(),
		StaffID:   staffID,
		StaffName: staff.FullName,
		Period:    req.Period,
		Amount:    staff.Salary,
		Bonus:     req.Bonus,
		PaidAt:    &now,
		PaidBy:    paidBy,
		CreatedAt: now,
	}

	if _, err := payrollColl.InsertOne(ctx, entry); err != nil {
		sc.logger.Printf("Error inserting payroll entry: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to run payroll",
		})
	}

	// Mirror into the ledger so finance totals include salaries
	transaction := models.Transaction{
		ID:         primitive.NewObjectID(),
		Kind:       models.TransactionExpense,
		Amount:     staff.Salary + req.Bonus,
		Method:     models.MethodBank,
		Reference:  uuid.NewString(),
		Note:       fmt.Sprintf("Salary %s for %s", req.Period, staff.FullName),
		RecordedBy: paidBy,
		CreatedAt:  now,
	}
	if _, err := config.GetCollection(sc.DB, "transactions").InsertOne(ctx, transaction); err != nil {
		sc.logger.Printf("Payroll ledger mirror failed: %v", err)
	} else {
		sc.hub.BroadcastToStaff(websocket.Event{
			Event: websocket.EventTransactionAdded,
			Data:  transaction,
		})
	}

	sc.hub.BroadcastToRoles(websocket.Event{Event: websocket.EventStatsUpdated}, models.RoleAdmin)

	go func() {
		var staffUser models.User
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := config.GetCollection(sc.DB, "users").FindOne(ctx, bson.M{"_id": staff.UserID}).Decode(&staffUser); err == nil {
			if err := utils.SendEmail(staffUser.Email,
				fmt.Sprintf("Salary paid for %s", req.Period),
				fmt.Sprintf("Hi %s,\n\nYour salary for %s has been paid.\n", staff.FullName, req.Period),
			); err != nil {
				sc.logger.Printf("Payroll email not sent: %v", err)
			}
		}
	}()

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Payroll recorded",
		"data":    entry,
	})
}

// ListPayroll returns payroll entries, optionally filtered by period
func (sc *StaffController) ListPayroll(c echo.Context) error {
	filter := bson.M{}
	if period := c.QueryParam("period"); period != "" {
		filter["period"] = period
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := config.GetCollection(sc.DB, "payroll").Find(ctx, filter, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	defer cursor.Close(ctx)

	entries := []models.PayrollEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    entries,
	})
}
