// Package telegram sends limit alerts to a Telegram chat.
package telegram

import (
	"context"
	"fmt"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/notify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects longer messages.
const maxMessageLength = 4096

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Sink struct {
	bot    sender
	chatID int64
}

var _ notify.Sink = (*Sink)(nil)

// New authenticates token against the Bot API.
func New(token string, chatID int64) (*Sink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Sink{bot: bot, chatID: chatID}, nil
}

func (s *Sink) Name() string { return "telegram" }

func (s *Sink) Notify(ctx context.Context, msg *amqp.LimitAlertMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := notify.FormatAlert(msg)
	if r := []rune(text); len(r) > maxMessageLength {
		text = string(r[:maxMessageLength-1]) + "…"
	}
	if _, err := s.bot.Send(tgbotapi.NewMessage(s.chatID, text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
