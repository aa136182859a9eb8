package services

import (
	"context"
	"fmt"

	"expense-tracker/internal/core"
	"expense-tracker/internal/log"
	"expense-tracker/internal/storage"

	"github.com/google/uuid"
)

// Invalidator drops derived state after a user's history changes.
type Invalidator interface {
	Invalidate(username string)
}

// TransactionService validates and persists a user's transactions.
type TransactionService struct {
	store       storage.TransactionStore
	invalidator Invalidator
	clock       Clock
}

func NewTransactionService(store storage.TransactionStore, invalidator Invalidator, clock Clock) *TransactionService {
	return &TransactionService{
		store:       store,
		invalidator: invalidator,
		clock:       clock,
	}
}

// Create assigns an ID and timestamps to tx and stores it under username.
func (s *TransactionService) Create(ctx context.Context, username string, tx core.Transaction) (core.Transaction, error) {
	if username == "" {
		return core.Transaction{}, core.ErrEmptyUsername
	}
	now := s.clock.now()
	tx.ID = uuid.NewString()
	tx.Username = username
	tx.CreatedAt = now
	tx.UpdatedAt = now
	tx.Amount = core.RoundAmount(tx.Amount)

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	log.FromContext(ctx).InfoContext(ctx, "Transaction created", txFields(tx).ToSlice()...)
	s.invalidate(username)
	return tx, nil
}

func (s *TransactionService) Get(ctx context.Context, username, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, username, id)
}

func (s *TransactionService) List(ctx context.Context, username string) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, username)
}

// Update replaces the editable fields of the stored transaction id with
// those of tx. Identity and creation time are kept.
func (s *TransactionService) Update(ctx context.Context, username, id string, tx core.Transaction) (core.Transaction, error) {
	existing, err := s.store.GetTransaction(ctx, username, id)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = existing.ID
	tx.Username = existing.Username
	tx.CreatedAt = existing.CreatedAt
	tx.UpdatedAt = s.clock.now()
	tx.Amount = core.RoundAmount(tx.Amount)

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	log.FromContext(ctx).InfoContext(ctx, "Transaction updated", txFields(tx).ToSlice()...)
	s.invalidate(username)
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, username, id string) error {
	if err := s.store.DeleteTransaction(ctx, username, id); err != nil {
		return err
	}
	log.FromContext(ctx).InfoContext(ctx, "Transaction deleted", log.FieldUsername, username, log.FieldTxID, id)
	s.invalidate(username)
	return nil
}

// txFields identifies tx in logs without its free-text fields.
func txFields(tx core.Transaction) log.LogFields {
	return log.NewFields().
		WithUsername(tx.Username).
		WithTransaction(tx.ID, string(tx.Type), tx.Category, tx.Amount.String(), tx.IsRecursive)
}

func (s *TransactionService) invalidate(username string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(username)
	}
}
