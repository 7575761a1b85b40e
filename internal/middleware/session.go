package middleware

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/coinharbor/coinharbor/internal/session"
)

// SessionAuth resolves the session cookie into an authenticated user id
// stored in request locals. Requests without a valid session are rejected.
func SessionAuth(store session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(session.CookieName)
		if sessionID == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing session")
		}

		userID, err := store.UserID(c.UserContext(), sessionID)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return fiber.NewError(http.StatusUnauthorized, "session expired")
			}
			return fiber.NewError(http.StatusInternalServerError, "session lookup failed")
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
