// middleware/idempotency.go
package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"crypto-gift-system/services"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

// IdempotencyMiddleware replays the cached response of a completed request that
// carried the same Idempotency-Key and body. Requests without the header pass through.
// Only 2xx responses are cached; anything else releases the key for a retry.
func IdempotencyMiddleware(store services.IdempotencyStore, scope string, ttl, timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Idempotency-Key is too long",
				"code":  string(services.CodeValidation),
			})
		}

		logger := log.WithFields(log.Fields{"component": "IDEMPOTENCY", "scope": scope})
		fingerprint := requestFingerprint(c.Method(), c.Path(), c.Body())

		beginCtx, cancel := context.WithTimeout(c.UserContext(), timeout)
		begin, err := store.Begin(beginCtx, scope, key, fingerprint, ttl)
		cancel()
		if err != nil {
			logger.WithError(err).Error("idempotency begin failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "idempotency store unavailable",
				"code":  string(services.CodeInternal),
			})
		}

		switch begin.State {
		case services.IdempotencyStateReplay:
			if begin.Cached.ContentType != "" {
				c.Set(fiber.HeaderContentType, begin.Cached.ContentType)
			}
			c.Set("Idempotent-Replayed", "true")
			return c.Status(begin.Cached.StatusCode).Send(begin.Cached.Body)
		case services.IdempotencyStateConflict:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Idempotency-Key was already used with a different request",
				"code":  "IDEMPOTENCY_CONFLICT",
			})
		case services.IdempotencyStateInProgress:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "a request with this Idempotency-Key is still in progress",
				"code":  "IDEMPOTENCY_IN_PROGRESS",
			})
		}

		nextErr := c.Next()

		finishCtx, cancelFinish := context.WithTimeout(context.Background(), timeout)
		defer cancelFinish()

		status := c.Response().StatusCode()
		if nextErr != nil || status < 200 || status > 299 {
			if errRelease := store.Release(finishCtx, scope, key, fingerprint); errRelease != nil {
				logger.WithError(errRelease).Warn("idempotency release failed")
			}
			return nextErr
		}

		body := append([]byte(nil), c.Response().Body()...)
		errComplete := store.Complete(finishCtx, scope, key, fingerprint, services.CachedHTTPResponse{
			StatusCode:  status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        body,
		}, ttl)
		if errComplete != nil {
			logger.WithError(errComplete).Warn("idempotency complete failed")
		}
		return nil
	}
}

func requestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
