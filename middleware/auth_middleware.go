// middleware/auth_middleware.go
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gymdesk/gymdesk_backend/models"
)

// DefaultLandingPath maps a role to the dashboard it lands on after a denied
// view. Any role not listed here is treated as admin-equivalent; product has
// been asked to confirm that default.
func DefaultLandingPath(role string) string {
	switch role {
	case models.RoleReception:
		return "/reception"
	default:
		return "/admin"
	}
}

// RequireRoles checks if the authenticated user has one of the allowed roles.
// Unauthenticated requests get 401; authenticated but unpermitted requests get
// 403 carrying the role's default landing path so the dashboard can redirect.
func RequireRoles(allowedRoles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := ExtractRole(c)

			if role == "" {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Authentication required",
				})
			}

			for _, allowed := range allowedRoles {
				if role == allowed {
					return next(c)
				}
			}

			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Access denied for your role",
				Data:    map[string]string{"redirectTo": DefaultLandingPath(role)},
			})
		}
	}
}
