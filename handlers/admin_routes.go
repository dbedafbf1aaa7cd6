// handlers/admin_routes.go
package handlers

import (
	"context"
	"time"

	"crypto-gift-system/middleware"
	"crypto-gift-system/models"
	"crypto-gift-system/services"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultAdminListLimit = 50
	maxAdminListLimit     = 200
)

// SetupAdminRoutes registers operator-only routes behind the operator token.
func SetupAdminRoutes(app *fiber.App, giftService *services.GiftService, operatorToken string) {
	admin := app.Group("/admin", middleware.OperatorAuthMiddleware(operatorToken))

	admin.Get("/gifts", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultAdminListLimit)
		if limit <= 0 {
			limit = defaultAdminListLimit
		}
		if limit > maxAdminListLimit {
			limit = maxAdminListLimit
		}
		status := models.GiftStatus(c.Query("status"))

		gifts, err := giftService.ListGifts(c.UserContext(), status, limit)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{
			"gifts": gifts,
			"count": len(gifts),
		})
	})
}

// SetupHealthRoutes reports whether the store is reachable.
func SetupHealthRoutes(app *fiber.App, ping func(ctx context.Context) error, timeout time.Duration) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()

		if err := ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
