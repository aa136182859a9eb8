// Package worker runs the periodic limit-alert sweep.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/core"
	"expense-tracker/internal/log"
	"expense-tracker/internal/metrics"
	"expense-tracker/internal/services"
	"expense-tracker/internal/storage"

	"golang.org/x/sync/errgroup"
)

const (
	ScopeMonth = "month"
	ScopeAll   = "all"
)

// AlertPublisher queues one alert per user.
type AlertPublisher interface {
	PublishLimitAlert(ctx context.Context, msg *amqp.LimitAlertMessage) error
}

// ExceededReporter computes a user's exceeded-limits report.
type ExceededReporter interface {
	Exceeded(ctx context.Context, username string) (services.ExceededReport, error)
}

type SweeperConfig struct {
	// Scope is ScopeMonth to alert on the current month only, or ScopeAll
	// for the whole history.
	Scope string
	// Concurrency bounds how many users are aggregated at once.
	Concurrency int
	Location    *time.Location
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Users    int
	Alerts   int
	Failures int
}

// AlertSweeper checks every user's spending against their limits and
// publishes an alert for each user over budget.
type AlertSweeper struct {
	users     storage.UserLister
	reporter  ExceededReporter
	publisher AlertPublisher
	config    SweeperConfig
	clock     func() time.Time
}

func NewAlertSweeper(users storage.UserLister, reporter ExceededReporter, publisher AlertPublisher, config SweeperConfig, clock func() time.Time) *AlertSweeper {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.Scope == "" {
		config.Scope = ScopeMonth
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &AlertSweeper{
		users:     users,
		reporter:  reporter,
		publisher: publisher,
		config:    config,
		clock:     clock,
	}
}

// Sweep runs one pass over all users. A failure for one user is logged and
// counted without stopping the others; only listing users or a cancelled
// context fails the sweep.
func (w *AlertSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	usernames, err := w.users.ListUsernames(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list users: %w", err)
	}

	now := w.clock()
	current := core.BucketOf(now, w.config.Location)
	slog.InfoContext(ctx, "Starting limit sweep",
		log.FieldOperation, log.OpSweep,
		log.FieldUsers, len(usernames),
		"scope", w.config.Scope,
		log.FieldMonth, current.String())

	var alerts, failures atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)

	for _, username := range usernames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sent, err := w.checkUser(gctx, username, current, now)
			if err != nil {
				failures.Add(1)
				slog.ErrorContext(gctx, "Limit check failed", log.FieldUsername, username, log.FieldError, err)
				return nil
			}
			if sent {
				alerts.Add(1)
			}
			return nil
		})
	}

	res := SweepResult{Users: len(usernames)}
	err = g.Wait()
	res.Alerts = int(alerts.Load())
	res.Failures = int(failures.Load())
	if err != nil {
		return res, err
	}

	slog.InfoContext(ctx, "Limit sweep complete",
		log.FieldOperation, log.OpSweep,
		log.FieldUsers, res.Users,
		"alerts", res.Alerts,
		"failures", res.Failures)
	return res, nil
}

func (w *AlertSweeper) checkUser(ctx context.Context, username string, current core.MonthBucket, now time.Time) (bool, error) {
	report, err := w.reporter.Exceeded(ctx, username)
	if err != nil {
		return false, err
	}

	exceeded := report.Exceeded
	if w.config.Scope == ScopeMonth {
		exceeded = metrics.ForMonth(exceeded, current)
	}
	if len(exceeded) == 0 {
		return false, nil
	}

	msg := amqp.NewLimitAlertMessage(username, w.config.Scope, exceeded, now)
	if err := w.publisher.PublishLimitAlert(ctx, msg); err != nil {
		return false, fmt.Errorf("publish alert: %w", err)
	}
	slog.InfoContext(ctx, "Limit alert published",
		log.FieldUsername, username,
		log.FieldExceeded, len(exceeded),
		"total_excess", msg.TotalExcess.StringFixed(2))
	return true, nil
}
