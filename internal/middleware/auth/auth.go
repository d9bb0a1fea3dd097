package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/stitchdesk/stitchdesk/internal/logging"
	"github.com/stitchdesk/stitchdesk/internal/tokens"
)

const (
	userIDKey = "userID"
	emailKey  = "userEmail"
)

// RequireAuth verifies the bearer access token and attaches the decoded
// identity to the request context. Missing and invalid tokens are
// rejected with distinct codes, matching the API contract.
func RequireAuth(t *tokens.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Access token required"})
			}

			claims, err := t.ParseAccessToken(raw)
			if err != nil {
				l := logging.FromContext(c.Request().Context())
				l.Warn("access token rejected", "error", err)
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Invalid or expired token"})
			}

			id, err := strconv.ParseUint(claims.Subject, 10, 64)
			if err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Invalid or expired token"})
			}

			c.Set(userIDKey, uint(id))
			c.Set(emailKey, claims.Email)
			return next(c)
		}
	}
}

func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(userIDKey).(uint)
	return id, ok
}

func Email(c echo.Context) (string, bool) {
	email, ok := c.Get(emailKey).(string)
	return email, ok
}
