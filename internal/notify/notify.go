// Package notify delivers limit alerts to the configured sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/log"
)

// Sink delivers one alert somewhere a human will see it.
type Sink interface {
	Name() string
	Notify(ctx context.Context, msg *amqp.LimitAlertMessage) error
}

// Fanout forwards each alert to every sink. All sinks are attempted; the
// returned error joins the individual failures.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Len() int { return len(f.sinks) }

// HandleLimitAlert matches the amqp consumer handler signature.
func (f *Fanout) HandleLimitAlert(ctx context.Context, msg *amqp.LimitAlertMessage) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Notify(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Alert delivery failed",
				log.FieldOperation, log.OpNotify,
				"sink", s.Name(),
				log.FieldUsername, msg.Username,
				log.FieldError, err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		slog.InfoContext(ctx, "Alert delivered", "sink", s.Name(), log.FieldUsername, msg.Username)
	}
	return errors.Join(errs...)
}

// FormatAlert renders msg as plain text, one block per exceeded entry.
func FormatAlert(msg *amqp.LimitAlertMessage) string {
	var b strings.Builder

	noun := "categories"
	if len(msg.Exceeded) == 1 {
		noun = "category"
	}
	fmt.Fprintf(&b, "Spending limits exceeded for %s\n", msg.Username)
	fmt.Fprintf(&b, "Over the limit in %d %s, by a total of %s\n",
		len(msg.Exceeded), noun, msg.TotalExcess.StringFixed(2))

	for _, e := range msg.Exceeded {
		fmt.Fprintf(&b, "\n%s (%s)\n", e.Group, e.Date)
		fmt.Fprintf(&b, "%s / %s, %s%% over limit\n",
			e.Amount.StringFixed(2), e.Limit.StringFixed(2), e.PercentOver().StringFixed(1))
	}
	return b.String()
}
