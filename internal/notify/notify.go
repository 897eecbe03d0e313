// Package notify sends run summaries to the operator. Telegram is the only
// implemented channel; when it is not configured, a no-op notifier is used
// so callers never need to branch.
package notify

import (
	"context"

	"github.com/mymmrac/telego"

	"github.com/aatumaykin/linkpilot/internal/logger"
)

// Notifier delivers operator-facing messages. Delivery failures are
// reported, never fatal.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Config holds notification settings.
type Config struct {
	Enabled bool
	Token   string
	ChatID  int64
}

// New creates a notifier for the configuration.
func New(cfg Config, log *logger.Logger) (Notifier, error) {
	if !cfg.Enabled || cfg.Token == "" {
		log.Info("notifications disabled")
		return NopNotifier{}, nil
	}
	return NewTelegramNotifier(cfg, log)
}

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) error { return nil }

// TelegramNotifier sends messages to a Telegram chat.
type TelegramNotifier struct {
	bot    *telego.Bot
	chatID int64
	logger *logger.Logger
}

// NewTelegramNotifier creates a notifier for the configured bot and chat.
func NewTelegramNotifier(cfg Config, log *logger.Logger) (*TelegramNotifier, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, err
	}

	return &TelegramNotifier{
		bot:    bot,
		chatID: cfg.ChatID,
		logger: log,
	}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, message string) error {
	_, err := n.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: n.chatID},
		Text:   message,
	})
	if err != nil {
		n.logger.Error("failed to send notification", err)
		return err
	}
	return nil
}
