package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/gymdesk/gymdesk_backend/config"
	"github.com/gymdesk/gymdesk_backend/models"
	"github.com/gymdesk/gymdesk_backend/utils"
	"github.com/gymdesk/gymdesk_backend/websocket"
)

// MemberController manages membership profiles and the approval flow
type MemberController struct {
	DB     *mongo.Client
	hub    *websocket.Hub
	logger *log.Logger
}

func NewMemberController(db *mongo.Client, hub *websocket.Hub) *MemberController {
	return &MemberController{
		DB:     db,
		hub:    hub,
		logger: log.New(os.Stdout, "[MEMBERS] ", log.LstdFlags),
	}
}

// Register creates a member account and a pending membership profile.
// Public endpoint: this is the marketing site's signup form.
func (mc *MemberController) Register(c echo.Context) error {
	var req models.RegisterMemberRequest
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

	phone, err := utils.SanitizePhone(req.Phone)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usersColl := config.GetCollection(mc.DB, "users")
	count, err := usersColl.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		mc.logger.Printf("Error checking existing email: %v", err)
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

	now := time.Now()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Email:     email,
		Password:  string(hashed),
		FirstName: utils.SanitizeInput(req.FirstName),
		LastName:  utils.SanitizeInput(req.LastName),
		Role:      models.RoleMember,
		Phone:     phone,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	member := models.Member{
		ID:        primitive.NewObjectID(),
		UserID:    user.ID,
		FullName:  user.FullName(),
		Email:     email,
		Phone:     phone,
		Plan:      req.Plan,
		Status:    models.MembershipPending,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := usersColl.InsertOne(ctx, user); err != nil {
		mc.logger.Printf("Error inserting user: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to create account",
		})
	}
	if _, err := config.GetCollection(mc.DB, "members").InsertOne(ctx, member); err != nil {
		mc.logger.Printf("Error inserting member profile: %v", err)
		usersColl.DeleteOne(ctx, bson.M{"_id": user.ID})
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to create membership",
		})
	}

	// Staff dashboards learn about the signup three ways: a roster broadcast
	// for the member views, a queue broadcast for the reception desk, and a
	// persistent notification for the inbox.
	mc.hub.BroadcastToStaff(websocket.Event{
		Event: websocket.EventNewMember,
		Data:  member,
	})
	mc.hub.BroadcastToStaff(websocket.Event{
		Event: websocket.EventMembershipRequest,
		Data:  member,
	})
	go func() {
		err := utils.NotifyRoles(mc.DB, mc.hub,
			[]string{models.RoleAdmin, models.RoleReception},
			"New membership request",
			fmt.Sprintf("%s requested a %s membership", member.FullName, member.Plan),
			websocket.EventMembershipRequest,
			map[string]string{"memberId": member.ID.Hex()},
		)
		if err != nil {
			mc.logger.Printf("Failed to notify staff of signup: %v", err)
		}
	}()

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Membership requested, pending approval",
		"data":    member,
	})
}

// List returns membership profiles, optionally filtered by status
func (mc *MemberController) List(c echo.Context) error {
	filter := bson.M{}
	if status := c.QueryParam("status"); status != "" {
		filter["status"] = status
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := config.GetCollection(mc.DB, "members").Find(ctx, filter, opts)
	if err != nil {
		mc.logger.Printf("Error listing members: %v", err)
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

// Get returns one membership profile
func (mc *MemberController) Get(c echo.Context) error {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid member ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var member models.Member
	err = config.GetCollection(mc.DB, "members").FindOne(ctx, bson.M{"_id": memberID}).Decode(&member)
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

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    member,
	})
}

// Approve activates a pending membership and starts its plan clock
func (mc *MemberController) Approve(c echo.Context) error {
	approverID, err := utils.GetUserIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid member ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	membersColl := config.GetCollection(mc.DB, "members")

	var member models.Member
	if err := membersColl.FindOne(ctx, bson.M{"_id": memberID}).Decode(&member); err != nil {
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

	if member.Status != models.MembershipPending {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"success": false,
			"message": "Membership is not pending",
		})
	}

	now := time.Now()
	expiresAt := now.Add(models.PlanDuration(member.Plan))
	update := bson.M{"$set": bson.M{
		"status":     models.MembershipActive,
		"expiresAt":  expiresAt,
		"approvedBy": approverID,
		"updatedAt":  now,
	}}

	if _, err := membersColl.UpdateOne(ctx, bson.M{"_id": memberID}, update); err != nil {
		mc.logger.Printf("Error approving member %s: %v", memberID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to approve membership",
		})
	}

	member.Status = models.MembershipActive
	member.ExpiresAt = expiresAt
	member.ApprovedBy = approverID
	member.UpdatedAt = now

	mc.hub.BroadcastToStaff(websocket.Event{
		Event: websocket.EventMembershipApprove,
		Data:  member,
	})
	go func() {
		if err := utils.NotifyUser(mc.DB, mc.hub, member.UserID,
			"Membership approved",
			fmt.Sprintf("Your %s membership is active until %s", member.Plan, expiresAt.Format("2 Jan 2006")),
			websocket.EventMembershipApprove,
			map[string]string{"memberId": member.ID.Hex()},
		); err != nil {
			mc.logger.Printf("Failed to notify member of approval: %v", err)
		}
		if err := utils.SendEmail(member.Email,
			"Your membership is approved",
			fmt.Sprintf("Hi %s,\n\nYour %s membership is now active and runs until %s.\nSee you at the gym!\n", member.FullName, member.Plan, expiresAt.Format("2 January 2006")),
		); err != nil {
			mc.logger.Printf("Approval email not sent to %s: %v", member.Email, err)
		}
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Membership approved",
		"data":    member,
	})
}

// Reject marks a pending membership as rejected
func (mc *MemberController) Reject(c echo.Context) error {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid member ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := config.GetCollection(mc.DB, "members").UpdateOne(ctx,
		bson.M{"_id": memberID, "status": models.MembershipPending},
		bson.M{"$set": bson.M{"status": models.MembershipRejected, "updatedAt": time.Now()}},
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Pending membership not found",
		})
	}

	mc.hub.BroadcastToStaff(websocket.Event{
		Event: websocket.EventMembershipApprove,
		Data:  map[string]string{"id": memberID.Hex(), "status": models.MembershipRejected},
	})

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Membership rejected",
	})
}

// Update edits a membership profile
func (mc *MemberController) Update(c echo.Context) error {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid member ID",
		})
	}

	var req models.UpdateMemberRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.FullName != "" {
		set["fullName"] = utils.SanitizeInput(req.FullName)
	}
	if req.Phone != "" {
		phone, err := utils.SanitizePhone(req.Phone)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"message": err.Error(),
			})
		}
		set["phone"] = phone
	}
	if req.Plan != "" {
		set["plan"] = req.Plan
	}
	if req.Status != "" {
		set["status"] = req.Status
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := config.GetCollection(mc.DB, "members").UpdateOne(ctx,
		bson.M{"_id": memberID}, bson.M{"$set": set})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Member not found",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Member updated",
	})
}

// Delete removes a membership profile (admin only)
func (mc *MemberController) Delete(c echo.Context) error {
	memberID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid member ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := config.GetCollection(mc.DB, "members").DeleteOne(ctx, bson.M{"_id": memberID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Database error",
		})
	}
	if result.DeletedCount == 0 {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Member not found",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Member deleted",
	})
}
