package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookSecret rejects webhook calls whose secret token header does not match.
// An empty secret disables the check.
func WebhookSecret(secret string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		token := c.Get(SecretTokenHeader)
		if token == "" {
			logger.Warn("Missing webhook secret token", zap.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Secret token required",
			})
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			logger.Warn("Invalid webhook secret token", zap.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid secret token",
			})
		}

		return c.Next()
	}
}
