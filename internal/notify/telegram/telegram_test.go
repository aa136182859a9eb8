package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/core"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func alert(entries int) *amqp.LimitAlertMessage {
	var exceeded []core.ExceededLimit
	for i := 0; i < entries; i++ {
		exceeded = append(exceeded, core.ExceededLimit{
			Date:   "06-2024",
			Group:  core.GroupLiving,
			Amount: decimal.NewFromInt(300),
			Limit:  decimal.NewFromInt(200),
		})
	}
	return amqp.NewLimitAlertMessage("alice", "all", exceeded, time.Now())
}

func TestSink_Notify(t *testing.T) {
	bot := &fakeBot{}
	s := &Sink{bot: bot, chatID: 42}

	if err := s.Notify(context.Background(), alert(1)); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(bot.sent))
	}
	if bot.sent[0].ChatID != 42 {
		t.Errorf("ChatID = %d, want 42", bot.sent[0].ChatID)
	}
	if !strings.Contains(bot.sent[0].Text, "50.0% over limit") {
		t.Errorf("unexpected text %q", bot.sent[0].Text)
	}
}

func TestSink_NotifyTruncatesLongAlerts(t *testing.T) {
	bot := &fakeBot{}
	s := &Sink{bot: bot, chatID: 1}

	if err := s.Notify(context.Background(), alert(200)); err != nil {
		t.Fatal(err)
	}
	if n := len([]rune(bot.sent[0].Text)); n != maxMessageLength {
		t.Errorf("text length = %d, want %d", n, maxMessageLength)
	}
}

func TestSink_NotifyErrors(t *testing.T) {
	s := &Sink{bot: &fakeBot{err: errors.New("forbidden")}, chatID: 1}
	if err := s.Notify(context.Background(), alert(1)); err == nil || !strings.Contains(err.Error(), "forbidden") {
		t.Errorf("Notify() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Notify(ctx, alert(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("Notify() with cancelled context error = %v", err)
	}
}
