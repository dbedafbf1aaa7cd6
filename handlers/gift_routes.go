// handlers/gift_routes.go
package handlers

import (
	"strings"
	"time"

	"crypto-gift-system/middleware"
	"crypto-gift-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type createGiftRequest struct {
	AmountUSD      float64 `json:"amountUsd" validate:"gt=0"`
	Message        string  `json:"message" validate:"max=500"`
	ExpiresAt      string  `json:"expiresAt"`
	DepositCoin    string  `json:"depositCoin" validate:"required"`
	DepositNetwork string  `json:"depositNetwork" validate:"required"`
	SenderAddress  string  `json:"senderAddress"`
}

type redeemGiftRequest struct {
	GiftID        string `json:"giftId" validate:"required"`
	RedeemCoin    string `json:"redeemCoin" validate:"required"`
	RedeemNetwork string `json:"redeemNetwork" validate:"required"`
	RedeemAddress string `json:"redeemAddress" validate:"required"`
}

// GiftRoutesOptions configures optional behaviour of the gift routes.
type GiftRoutesOptions struct {
	// Idempotency, when set, guards gift creation.
	Idempotency fiber.Handler
}

func SetupGiftRoutes(app *fiber.App, giftService *services.GiftService, opts GiftRoutesOptions) {
	gifts := app.Group("/api/gifts", middleware.CallerOriginMiddleware())

	createHandlers := []fiber.Handler{}
	if opts.Idempotency != nil {
		createHandlers = append(createHandlers, opts.Idempotency)
	}
	createHandlers = append(createHandlers, createGift(giftService))

	gifts.Post("/create", createHandlers...)
	gifts.Post("/redeem", redeemGift(giftService))
	gifts.Get("/:giftId", getGift(giftService))
}

func createGift(giftService *services.GiftService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createGiftRequest
		if err := c.BodyParser(&req); err != nil {
			return validationError(c, "invalid JSON")
		}
		req.DepositCoin = strings.TrimSpace(req.DepositCoin)
		req.DepositNetwork = strings.TrimSpace(req.DepositNetwork)
		if err := validate.Struct(req); err != nil {
			return validationError(c, describeValidation(err))
		}

		var expiresAt *time.Time
		if raw := strings.TrimSpace(req.ExpiresAt); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return validationError(c, "expiresAt must be an RFC 3339 timestamp")
			}
			t = t.UTC()
			expiresAt = &t
		}

		result, err := giftService.CreateGift(c.UserContext(), services.CreateGiftInput{
			AmountUSD:      req.AmountUSD,
			Message:        req.Message,
			ExpiresAt:      expiresAt,
			DepositCoin:    req.DepositCoin,
			DepositNetwork: req.DepositNetwork,
			SenderAddress:  req.SenderAddress,
			CallerOrigin:   middleware.CallerOrigin(c),
		})
		if err != nil {
			return writeError(c, err)
		}

		return c.JSON(fiber.Map{
			"success":        true,
			"giftId":         result.GiftID,
			"depositAddress": result.DepositAddress,
			"depositAmount":  result.DepositAmount,
			"depositCoin":    result.DepositCoin,
			"depositNetwork": result.DepositNetwork,
			"shiftId":        result.ShiftID,
			"min":            result.Min,
			"max":            result.Max,
			"giftLink":       result.GiftLink,
		})
	}
}

func getGift(giftService *services.GiftService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		giftID := c.Params("giftId")
		if _, err := uuid.Parse(giftID); err != nil {
			return validationError(c, "giftId must be a valid UUID")
		}

		gift, err := giftService.GetGift(c.UserContext(), giftID, middleware.CallerOrigin(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(gift)
	}
}

func redeemGift(giftService *services.GiftService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req redeemGiftRequest
		if err := c.BodyParser(&req); err != nil {
			return validationError(c, "invalid JSON")
		}
		if err := validate.Struct(req); err != nil {
			return validationError(c, "Missing required fields")
		}
		if _, err := uuid.Parse(req.GiftID); err != nil {
			return validationError(c, "giftId must be a valid UUID")
		}

		result, err := giftService.RedeemGift(c.UserContext(), services.RedeemGiftInput{
			GiftID:        req.GiftID,
			RedeemCoin:    req.RedeemCoin,
			RedeemNetwork: req.RedeemNetwork,
			RedeemAddress: req.RedeemAddress,
			CallerOrigin:  middleware.CallerOrigin(c),
		})
		if err != nil {
			return writeError(c, err)
		}

		return c.JSON(fiber.Map{
			"success":        true,
			"shiftId":        result.ShiftID,
			"depositAddress": result.DepositAddress,
			"redeemCoin":     result.RedeemCoin,
			"redeemNetwork":  result.RedeemNetwork,
			"redeemAddress":  result.RedeemAddress,
			"status":         result.Status,
		})
	}
}
