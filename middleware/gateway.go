// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// OperatorAuthMiddleware validates the operator's Bearer token on admin routes.
// An empty token disables the routes entirely.
func OperatorAuthMiddleware(expectedToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Not found",
				"code":  "NOT_FOUND",
			})
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.WithField("component", "OPERATOR_AUTH").Warnf("missing Authorization header for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "operator token missing",
				"code":  "UNAUTHORIZED",
			})
		}

		// Parse "Bearer <token>"
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.WithField("component", "OPERATOR_AUTH").Warnf("invalid operator token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid operator token",
				"code":  "UNAUTHORIZED",
			})
		}

		return c.Next()
	}
}
