package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/courierchat/server/internal/repository"
)

// SessionResolver is the capability SessionAuth needs from the session
// store: map a raw bearer token to a user ID, or report absence.
type SessionResolver interface {
	Resolve(ctx context.Context, raw string) (uint64, error)
}

// SessionAuth returns an Echo middleware that authenticates requests by
// opaque bearer token. Every request lands in one of three outcomes:
// no token (401 no_token), a token the store does not recognize
// (401 invalid_token), or a resolved identity that is stored in the
// request context under "user_id" for the rest of the chain.
func SessionAuth(sessions SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no_token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			userID, err := sessions.Resolve(c.Request().Context(), raw)
			if err != nil {
				if errors.Is(err, repository.ErrSessionNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_token"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session lookup failed"})
			}

			c.Set("user_id", userID)
			c.Set("session_token", raw)
			return next(c)
		}
	}
}

// UserID extracts the authenticated user's ID from the Echo context.
// It only succeeds after SessionAuth has run.
func UserID(c echo.Context) (uint64, error) {
	v, ok := c.Get("user_id").(uint64)
	if !ok || v == 0 {
		return 0, errors.New("no authenticated user in context")
	}
	return v, nil
}

// SessionToken returns the raw bearer token SessionAuth validated for
// this request. Used by logout to revoke exactly the presented session.
func SessionToken(c echo.Context) string {
	s, _ := c.Get("session_token").(string)
	return s
}
