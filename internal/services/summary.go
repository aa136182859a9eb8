package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/core"
	"expense-tracker/internal/log"
	"expense-tracker/internal/storage"
)

// SummaryPublisher hands a summary request to the external generator.
type SummaryPublisher interface {
	PublishSummaryRequest(ctx context.Context, msg *amqp.SummaryRequestMessage) error
}

// SummaryService lets selected users request a generated financial summary
// at most once per window.
type SummaryService struct {
	transactions storage.TransactionStore
	usage        storage.SummaryUsageStore
	metrics      *MetricsService
	limits       *LimitsService
	publisher    SummaryPublisher
	allowed      []string
	window       time.Duration
	clock        Clock
}

type SummaryConfig struct {
	AllowedUsers []string
	Window       time.Duration
}

func NewSummaryService(
	transactions storage.TransactionStore,
	usage storage.SummaryUsageStore,
	metrics *MetricsService,
	limits *LimitsService,
	publisher SummaryPublisher,
	cfg SummaryConfig,
	clock Clock,
) *SummaryService {
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	return &SummaryService{
		transactions: transactions,
		usage:        usage,
		metrics:      metrics,
		limits:       limits,
		publisher:    publisher,
		allowed:      cfg.AllowedUsers,
		window:       cfg.Window,
		clock:        clock,
	}
}

// Allowed reports whether username may request summaries at all.
func (s *SummaryService) Allowed(username string) bool {
	return slices.Contains(s.allowed, username)
}

// Request claims the user's slot for the current window and queues a
// summary request. The slot stays consumed when publishing fails.
func (s *SummaryService) Request(ctx context.Context, username string) error {
	if !s.Allowed(username) {
		return ErrSummaryNotAllowed
	}
	if s.publisher == nil {
		return ErrSummaryUnavailable
	}

	txs, err := s.transactions.ListTransactions(ctx, username)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	snap, err := s.metrics.Snapshot(ctx, username)
	if err != nil {
		return err
	}
	report, err := s.limits.report(ctx, username, snap)
	if err != nil {
		return err
	}

	now := s.clock.now()
	ok, err := s.usage.ClaimSummarySlot(ctx, username, now, s.window)
	if err != nil {
		return fmt.Errorf("claim summary slot: %w", err)
	}
	if !ok {
		log.FromContext(ctx).InfoContext(ctx, "Summary request throttled", log.FieldUsername, username)
		return ErrSummaryThrottled
	}

	msg := &amqp.SummaryRequestMessage{
		Username:         username,
		RequestedAt:      now,
		ExpenseGroups:    core.Taxonomy(),
		IncomeCategories: core.IncomeCategories(),
		Metrics:          snap,
		Exceeded:         report.Exceeded,
		Transactions:     txs,
	}
	if err := s.publisher.PublishSummaryRequest(ctx, msg); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to publish summary request", log.FieldUsername, username, log.FieldError, err)
		return fmt.Errorf("%w: %w", ErrSummaryUnavailable, err)
	}

	log.FromContext(ctx).InfoContext(ctx, "Summary request queued", log.FieldUsername, username, log.FieldTransaction, len(txs))
	return nil
}
