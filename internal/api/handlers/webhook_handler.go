package handlers

import (
	"context"
	"encoding/json"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UpdateHandler processes one chat update to completion.
type UpdateHandler interface {
	Handle(ctx context.Context, update tgbotapi.Update)
}

type WebhookHandler struct {
	updates UpdateHandler
	logger  *zap.Logger
}

func NewWebhookHandler(updates UpdateHandler, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		updates: updates,
		logger:  logger,
	}
}

// Receive godoc
// @Summary Receive a Telegram update
// @Description Entry point for Telegram webhook deliveries. Always answers 200 once the update was parsed; problems are reported to the user in the chat.
// @Tags webhook
// @Accept json
// @Produce plain
// @Param X-Telegram-Bot-Api-Secret-Token header string false "Webhook secret"
// @Param update body object true "Telegram Update object"
// @Success 200 {string} string "OK"
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /webhook [post]
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Empty update",
		})
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		h.logger.Warn("Invalid webhook payload", zap.Error(err), zap.ByteString("body", head(body, 200)))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not parse update",
		})
	}

	h.updates.Handle(c.UserContext(), update)
	return c.SendString("OK")
}

// MethodNotAllowed answers non-POST requests to the webhook path.
func (h *WebhookHandler) MethodNotAllowed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
		"error": "Method Not Allowed",
	})
}

func head(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
