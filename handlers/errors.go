// handlers/errors.go
package handlers

import (
	"crypto-gift-system/services"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

func statusForCode(code services.Code) int {
	switch code {
	case services.CodeValidation, services.CodeOriginRequired, services.CodePairUnavailable, services.CodeGiftExpired:
		return fiber.StatusBadRequest
	case services.CodeNotFound:
		return fiber.StatusNotFound
	case services.CodeInvalidState:
		return fiber.StatusConflict
	case services.CodeSwapCreationFailed, services.CodeSwapLookupFailed, services.CodeProviderUnavailable:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as {"error": message, "code": CODE}.
// Internal causes are logged, never returned to the caller.
func writeError(c *fiber.Ctx, err error) error {
	code := services.GetCode(err)
	status := statusForCode(code)

	message := err.Error()
	if status == fiber.StatusInternalServerError {
		log.WithField("component", "HTTP").WithError(err).Errorf("%s %s failed", c.Method(), c.Path())
		message = "Internal server error"
	}

	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  string(code),
	})
}

func validationError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  string(services.CodeValidation),
	})
}
