package bot

import (
	"context"
	"fmt"
	"strconv"

	"receipt-ledger/internal/metrics"
	"receipt-ledger/internal/presenter"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramMessenger sends replies through the Bot API. It also delivers
// service notifications, addressed by user id (a private chat id).
type TelegramMessenger struct {
	api     *tgbotapi.BotAPI
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewTelegramMessenger authorizes against the Bot API; endpoint is a
// "https://host/bot%s/%s" pattern.
func NewTelegramMessenger(token, endpoint string, m *metrics.Metrics, logger *zap.Logger) (*TelegramMessenger, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = false
	logger.Info("Authorized on telegram", zap.String("bot", api.Self.UserName))

	return &TelegramMessenger{api: api, metrics: m, logger: logger}, nil
}

func (t *TelegramMessenger) Send(_ context.Context, chatID int64, msg presenter.Message) error {
	c := tgbotapi.NewMessage(chatID, msg.Text)
	if msg.Markdown {
		c.ParseMode = tgbotapi.ModeMarkdownV2
	}
	if len(msg.Keyboard) > 0 {
		c.ReplyMarkup = inlineKeyboard(msg.Keyboard)
	}
	if _, err := t.api.Send(c); err != nil {
		t.metrics.TransportError("send")
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Edit replaces the text of an earlier message. Its buttons are dropped unless msg has its own.
func (t *TelegramMessenger) Edit(_ context.Context, chatID int64, messageID int, msg presenter.Message) error {
	c := tgbotapi.NewEditMessageText(chatID, messageID, msg.Text)
	if msg.Markdown {
		c.ParseMode = tgbotapi.ModeMarkdownV2
	}
	if len(msg.Keyboard) > 0 {
		kb := inlineKeyboard(msg.Keyboard)
		c.ReplyMarkup = &kb
	}
	if _, err := t.api.Request(c); err != nil {
		t.metrics.TransportError("edit")
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func (t *TelegramMessenger) AnswerCallback(_ context.Context, callbackID string) error {
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		t.metrics.TransportError("answer_callback")
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

func (t *TelegramMessenger) FileURL(_ context.Context, fileID string) (string, error) {
	link, err := t.api.GetFileDirectURL(fileID)
	if err != nil {
		t.metrics.TransportError("get_file")
		return "", fmt.Errorf("failed to get file: %w", err)
	}
	return link, nil
}

func (t *TelegramMessenger) Notify(ctx context.Context, userID, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	return t.Send(ctx, chatID, presenter.Text(text))
}

// SetCommands registers the command menu shown by chat clients.
func (t *TelegramMessenger) SetCommands(commands map[string]string, order []string) error {
	var list []tgbotapi.BotCommand
	for _, name := range order {
		list = append(list, tgbotapi.BotCommand{Command: name, Description: commands[name]})
	}
	if _, err := t.api.Request(tgbotapi.NewSetMyCommands(list...)); err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}
	return nil
}

// SetWebhook points the bot at url. Telegram echoes secret back in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (t *TelegramMessenger) SetWebhook(url, secret string) error {
	params := tgbotapi.Params{"url": url}
	if secret != "" {
		params["secret_token"] = secret
	}
	resp, err := t.api.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	t.logger.Info("Webhook registered", zap.String("url", url), zap.String("result", resp.Description))
	return nil
}

func inlineKeyboard(rows [][]presenter.Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		keyboard = append(keyboard, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}
