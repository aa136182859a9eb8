// Package storage declares the persistence ports used by the services.
//
// Implementations live in the mongo, sqlite and memory subpackages and are
// selected at startup by the backend factory.
package storage

import (
	"context"
	"errors"
	"time"

	"expense-tracker/internal/core"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Ports for outbound adapters. Every lookup is scoped to a username.
type (
	TransactionStore interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) error
		GetTransaction(ctx context.Context, username, id string) (core.Transaction, error)
		// ListTransactions returns the user's full history in storage order.
		ListTransactions(ctx context.Context, username string) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, username, id string) error
	}

	// UserLister enumerates users that own at least one transaction.
	UserLister interface {
		ListUsernames(ctx context.Context) ([]string, error)
	}

	LimitsStore interface {
		// GetLimits returns ErrNotFound before the user's limits were created.
		GetLimits(ctx context.Context, username string) (core.LimitsConfig, error)
		// CreateLimits returns ErrAlreadyExists when a record is present.
		CreateLimits(ctx context.Context, cfg core.LimitsConfig) error
		// UpdateLimits returns ErrNotFound when no record is present.
		UpdateLimits(ctx context.Context, cfg core.LimitsConfig) error
	}

	// SummaryUsageStore records when a user last requested a summary.
	SummaryUsageStore interface {
		// ClaimSummarySlot records now and returns true only when the user has
		// no previous request or the previous one is at least window old.
		// Concurrent claims for one user never both succeed.
		ClaimSummarySlot(ctx context.Context, username string, now time.Time, window time.Duration) (bool, error)
	}

	// Store is the full set of ports a backend provides.
	Store interface {
		TransactionStore
		UserLister
		LimitsStore
		SummaryUsageStore
		Ping(ctx context.Context) error
		Close() error
	}
)
