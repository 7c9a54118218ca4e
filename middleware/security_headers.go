// middleware/security_headers.go
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityConfig controls the Content-Security-Policy handed to the
// dashboard pages.
type SecurityConfig struct {
	AllowedDomains []string // extra connect-src origins (API + websocket hosts)
	AllowInlineJS  bool
	AllowEval      bool
}

// SecurityHeadersWithConfig hardens every response. The dashboards keep a
// live websocket open, so connect-src must cover ws/wss alongside the API
// origin.
func SecurityHeadersWithConfig(config SecurityConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
			h.Set("Content-Security-Policy", buildCSP(config))
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

			h.Del("Server")
			h.Del("X-Powered-By")

			return next(c)
		}
	}
}

func buildCSP(config SecurityConfig) string {
	csp := []string{
		"default-src 'self'",
		"img-src 'self' data:",
		"style-src 'self' 'unsafe-inline'",
	}

	script := "script-src 'self'"
	if config.AllowInlineJS {
		script += " 'unsafe-inline'"
	}
	if config.AllowEval {
		script += " 'unsafe-eval'"
	}
	csp = append(csp, script)

	// The event stream dials back to the same host over ws/wss
	connect := []string{"'self'", "ws:", "wss:"}
	connect = append(connect, config.AllowedDomains...)
	csp = append(csp, "connect-src "+strings.Join(connect, " "))

	return strings.Join(csp, "; ")
}
