// middleware/auth.go
package middleware

import (
	"crypto-gift-system/utils"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// LocalCallerOrigin holds the raw caller origin taken from proxy headers.
const LocalCallerOrigin = "caller_origin"

// CallerOriginMiddleware extracts the end user's network origin set by the edge proxy.
// The socket peer is never used: behind a proxy it is the proxy itself.
func CallerOriginMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := utils.FirstOrigin(
			c.Get(fiber.HeaderXForwardedFor),
			c.Get("X-Real-IP"),
			c.Get("CF-Connecting-IP"),
		)
		c.Locals(LocalCallerOrigin, origin)

		log.WithField("component", "ORIGIN").Debugf("origin=%q public=%t | Path: %s",
			origin, utils.PublicOrigin(origin) != "", c.Path())

		return c.Next()
	}
}

// CallerOrigin returns the origin stored by CallerOriginMiddleware, or "".
func CallerOrigin(c *fiber.Ctx) string {
	origin, _ := c.Locals(LocalCallerOrigin).(string)
	return origin
}
