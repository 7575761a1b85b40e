package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const adminKeyHeader = "x-admin-key"

// AdminKey guards admin endpoints with a shared secret supplied via the
// x-admin-key header or the key query parameter.
func AdminKey(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return fiber.NewError(http.StatusUnauthorized, "admin access disabled")
		}

		supplied := c.Get(adminKeyHeader)
		if supplied == "" {
			supplied = c.Query("key")
		}

		if subtle.ConstantTimeCompare([]byte(supplied), []byte(secret)) != 1 {
			return fiber.NewError(http.StatusUnauthorized, "invalid admin key")
		}

		c.Locals("admin", true)
		return c.Next()
	}
}
