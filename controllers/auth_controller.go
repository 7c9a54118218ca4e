package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/gymdesk/gymdesk_backend/config"
	"github.com/gymdesk/gymdesk_backend/middleware"
	"github.com/gymdesk/gymdesk_backend/models"
	"github.com/gymdesk/gymdesk_backend/repositories"
	"github.com/gymdesk/gymdesk_backend/utils"
)

const (
	maxLoginAttempts   = 5
	loginAttemptWindow = 15 * time.Minute
)

// AuthController contains authentication logic
type AuthController struct {
	DB            *mongo.Client
	users         *repositories.UserRepository
	logger        *log.Logger
	loginAttempts map[string]struct {
		count       int
		lastAttempt time.Time
	}
	loginAttemptsMu sync.RWMutex
}

// NewAuthController creates a new auth controller
func NewAuthController(db *mongo.Client) *AuthController {
	ac := &AuthController{
		DB:     db,
		users:  repositories.NewUserRepository(db),
		logger: log.New(os.Stdout, "[AUTH] ", log.LstdFlags),
		loginAttempts: make(map[string]struct {
			count       int
			lastAttempt time.Time
		}),
	}

	go ac.startLoginAttemptCleanupRoutine()

	return ac
}

func (ac *AuthController) startLoginAttemptCleanupRoutine() {
	for {
		time.Sleep(30 * time.Minute)
		now := time.Now()
		ac.loginAttemptsMu.Lock()
		for email, attempt := range ac.loginAttempts {
			if now.Sub(attempt.lastAttempt) > loginAttemptWindow {
				delete(ac.loginAttempts, email)
			}
		}
		ac.loginAttemptsMu.Unlock()
	}
}

func (ac *AuthController) tooManyAttempts(email string) bool {
	ac.loginAttemptsMu.RLock()
	defer ac.loginAttemptsMu.RUnlock()

	attempt, exists := ac.loginAttempts[email]
	if !exists {
		return false
	}
	return attempt.count >= maxLoginAttempts && time.Since(attempt.lastAttempt) < loginAttemptWindow
}

func (ac *AuthController) recordFailedAttempt(email string) {
	ac.loginAttemptsMu.Lock()
	defer ac.loginAttemptsMu.Unlock()

	attempt := ac.loginAttempts[email]
	if time.Since(attempt.lastAttempt) > loginAttemptWindow {
		attempt.count = 0
	}
	attempt.count++
	attempt.lastAttempt = time.Now()
	ac.loginAttempts[email] = attempt
}

func (ac *AuthController) clearAttempts(email string) {
	ac.loginAttemptsMu.Lock()
	delete(ac.loginAttempts, email)
	ac.loginAttemptsMu.Unlock()
}

// Login authenticates a staff or member account and returns a JWT pair
func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid email format",
		})
	}

	if ac.tooManyAttempts(email) {
		ac.logger.Printf("Login blocked for %s: too many attempts", email)
		return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
			"success": false,
			"message": "Too many login attempts, try again later",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := ac.users.FindByEmail(ctx, email)
	if err != nil {
		ac.recordFailedAttempt(email)
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Invalid email or password",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		ac.recordFailedAttempt(email)
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Invalid email or password",
		})
	}

	if !user.IsActive {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Account is inactive",
		})
	}

	token, refreshToken, err := middleware.GenerateJWT(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		ac.logger.Printf("Failed to generate tokens for %s: %v", email, err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to generate tokens",
		})
	}

	ac.clearAttempts(email)

	// Remember-me sessions live server-side in Redis, keyed by the opaque
	// refresh token
	if req.RememberMe {
		if redisClient := config.GetRedisClient(); redisClient != nil {
			session := utils.RefreshSession{
				UserID:     user.ID.Hex(),
				Email:      user.Email,
				Role:       user.Role,
				ExpiresAt:  time.Now().Add(middleware.RefreshTokenTTL),
				DeviceInfo: c.Request().UserAgent(),
			}
			if err := utils.StoreRefreshSession(redisClient, refreshToken, session, middleware.RefreshTokenTTL); err != nil {
				ac.logger.Printf("Failed to store refresh session: %v", err)
			}
		}
	}

	go func() {
		if err := ac.users.TouchActivity(user.ID); err != nil {
			ac.logger.Printf("Failed to record login activity for %s: %v", email, err)
		}
	}()

	user.Password = ""
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"data": models.LoginResponse{
			Token:        token,
			RefreshToken: refreshToken,
			User:         *user,
		},
	})
}

// Refresh exchanges a refresh token for a new JWT pair
func (ac *AuthController) Refresh(c echo.Context) error {
	var req models.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
	}

	claims, err := middleware.ParseToken(req.RefreshToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Invalid refresh token",
		})
	}

	resp, err := utils.ValidateToken(req.RefreshToken, ac.DB)
	if err != nil || !resp.Valid {
		message := "Invalid refresh token"
		if resp != nil && resp.Message != "" {
			message = resp.Message
		}
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": message,
		})
	}

	// A token only refreshes for an account that still exists and is active
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Invalid refresh token",
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	user, err := ac.users.FindByID(ctx, userID)
	if err != nil || !user.IsActive {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Account is no longer active",
		})
	}

	token, refreshToken, err := middleware.GenerateJWT(claims.UserID, claims.Email, claims.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Failed to generate tokens",
		})
	}

	// Rotate any remembered session onto the new refresh token
	if redisClient := config.GetRedisClient(); redisClient != nil {
		if session, err := utils.RetrieveRefreshSession(redisClient, req.RefreshToken); err == nil {
			session.ExpiresAt = time.Now().Add(middleware.RefreshTokenTTL)
			if err := utils.StoreRefreshSession(redisClient, refreshToken, *session, middleware.RefreshTokenTTL); err != nil {
				ac.logger.Printf("Failed to rotate refresh session: %v", err)
			} else if err := utils.RemoveRefreshSession(redisClient, req.RefreshToken); err != nil {
				ac.logger.Printf("Failed to drop old refresh session: %v", err)
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Token refreshed",
		"data": map[string]string{
			"token":        token,
			"refreshToken": refreshToken,
		},
	})
}

// Logout invalidates the current access token and drops the Redis session
func (ac *AuthController) Logout(c echo.Context) error {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": "Unauthorized",
		})
	}

	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		raw := strings.TrimPrefix(authHeader, "Bearer ")
		expiry := time.Now().Add(middleware.AccessTokenTTL)
		if claims.ExpiresAt > 0 {
			expiry = time.Unix(claims.ExpiresAt, 0)
		}
		middleware.BlacklistToken(raw, expiry)
	}

	var body struct {
		RefreshToken string `json:"refreshToken,omitempty"`
	}
	if err := c.Bind(&body); err == nil && body.RefreshToken != "" {
		if redisClient := config.GetRedisClient(); redisClient != nil {
			if err := utils.RemoveRefreshSession(redisClient, body.RefreshToken); err != nil {
				ac.logger.Printf("Failed to remove refresh session: %v", err)
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

// Me returns the authenticated user's profile
func (ac *AuthController) Me(c echo.Context) error {
	user, err := utils.GetUserFromToken(c, ac.DB)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
	}

	user.Password = ""
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    user,
	})
}

// ValidateSession lets a reloaded dashboard check whether its cached token
// is still usable before opening the event stream
func (ac *AuthController) ValidateSession(c echo.Context) error {
	resp, err := utils.ValidateTokenFromHeader(c.Request().Header.Get("Authorization"), ac.DB)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Validation error",
		})
	}

	status := http.StatusOK
	if !resp.Valid {
		status = http.StatusUnauthorized
	}
	return c.JSON(status, map[string]interface{}{
		"success": resp.Valid,
		"message": resp.Message,
		"data":    resp,
	})
}
