package bot

import (
	"context"
	"errors"

	"receipt-ledger/internal/presenter"

	"go.uber.org/zap"
)

var ErrNoTransport = errors.New("messaging transport is not configured")

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	Send(ctx context.Context, chatID int64, msg presenter.Message) error
	Edit(ctx context.Context, chatID int64, messageID int, msg presenter.Message) error
	AnswerCallback(ctx context.Context, callbackID string) error
	// FileURL resolves an attachment id to a download URL.
	FileURL(ctx context.Context, fileID string) (string, error)
}

// LogMessenger stands in for the transport when no bot token is configured.
// Replies are logged; attachments cannot be fetched.
type LogMessenger struct {
	logger *zap.Logger
}

func NewLogMessenger(logger *zap.Logger) *LogMessenger {
	return &LogMessenger{logger: logger}
}

func (m *LogMessenger) Send(_ context.Context, chatID int64, msg presenter.Message) error {
	m.logger.Info("Reply (transport disabled)", zap.Int64("chat_id", chatID), zap.String("text", msg.Text))
	return nil
}

func (m *LogMessenger) Edit(_ context.Context, chatID int64, messageID int, msg presenter.Message) error {
	m.logger.Info("Edit (transport disabled)",
		zap.Int64("chat_id", chatID),
		zap.Int("message_id", messageID),
		zap.String("text", msg.Text))
	return nil
}

func (m *LogMessenger) AnswerCallback(context.Context, string) error {
	return nil
}

func (m *LogMessenger) FileURL(context.Context, string) (string, error) {
	return "", ErrNoTransport
}

func (m *LogMessenger) Notify(_ context.Context, userID, text string) error {
	m.logger.Info("Notification (transport disabled)", zap.String("user_id", userID), zap.String("text", text))
	return nil
}
