// handlers/catalog_routes.go
package handlers

import (
	"context"
	"strings"
	"time"

	"crypto-gift-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupCatalogRoutes exposes the provider's coin list and pair quotes as-is.
func SetupCatalogRoutes(app *fiber.App, swaps services.SwapProvider, timeout time.Duration) {
	api := app.Group("/api")

	api.Get("/coins", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()

		coins, err := swaps.ListAssets(ctx)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(coins)
	})

	api.Get("/pair", func(c *fiber.Ctx) error {
		depositCoin := strings.TrimSpace(c.Query("depositCoin"))
		depositNetwork := strings.TrimSpace(c.Query("depositNetwork"))
		settleCoin := strings.TrimSpace(c.Query("settleCoin"))
		settleNetwork := strings.TrimSpace(c.Query("settleNetwork"))
		if depositCoin == "" || depositNetwork == "" || settleCoin == "" || settleNetwork == "" {
			return validationError(c, "Missing required parameters")
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()

		pair, err := swaps.GetRate(ctx, depositCoin, depositNetwork, settleCoin, settleNetwork)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(pair)
	})
}
