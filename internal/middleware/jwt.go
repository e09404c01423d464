package middleware // reusable HTTP middleware for the echo server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/faylib/equipment-calendar/internal/utils"
)

// SessionIDKey is the echo context key holding the authenticated booking
// session id.
const SessionIDKey = "session_id"

// SessionAuth returns an Echo middleware that validates a Bearer session
// token and checks that its subject matches the :id path parameter.  The
// verified id is stored under SessionIDKey for the handlers.
func SessionAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			id, err := utils.ParseSessionToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			// A token only opens the session it was issued for.
			if p := c.Param("id"); p != "" && p != id {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "token does not match session"})
			}
			c.Set(SessionIDKey, id)
			return next(c)
		}
	}
}
