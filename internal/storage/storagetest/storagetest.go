// Package storagetest holds a behavioural suite every storage backend runs.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"expense-tracker/internal/core"
	"expense-tracker/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Run exercises s against the storage port contracts. s must be empty.
func Run(t *testing.T, s storage.Store) {
	t.Helper()
	t.Run("transactions", func(t *testing.T) { testTransactions(t, s) })
	t.Run("limits", func(t *testing.T) { testLimits(t, s) })
	t.Run("summary slot", func(t *testing.T) { testSummarySlot(t, s) })
	t.Run("concurrent summary claims", func(t *testing.T) { testConcurrentClaims(t, s) })
}

func sampleTransaction(username string) core.Transaction {
	now := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	return core.Transaction{
		ID:          uuid.NewString(),
		Username:    username,
		Title:       "Groceries",
		Description: "weekly shopping",
		Amount:      decimal.RequireFromString("42.50"),
		Type:        core.Expense,
		Category:    "groceries",
		Date:        now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()

	first := sampleTransaction("alice")
	second := sampleTransaction("alice")
	second.IsRecursive = true
	second.RecursionPeriod = core.Monthly
	second.EndDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	other := sampleTransaction("bob")

	for _, tx := range []core.Transaction{first, second, other} {
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}

	list, err := s.ListTransactions(ctx, "alice")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("ListTransactions() = %+v", list)
	}
	if !list[0].Amount.Equal(first.Amount) || !list[1].EndDate.Equal(second.EndDate) {
		t.Fatalf("round trip lost data: %+v", list)
	}
	if !list[0].EndDate.IsZero() {
		t.Fatalf("open-ended transaction came back with end date %v", list[0].EndDate)
	}

	if _, err := s.GetTransaction(ctx, "bob", first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("cross-user get: expected ErrNotFound, got %v", err)
	}

	first.Title = "Supermarket"
	first.Amount = decimal.NewFromInt(10)
	if err := s.UpdateTransaction(ctx, first); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	got, err := s.GetTransaction(ctx, "alice", first.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Title != "Supermarket" || !got.Amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("update not persisted: %+v", got)
	}

	missing := sampleTransaction("alice")
	if err := s.UpdateTransaction(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update missing: expected ErrNotFound, got %v", err)
	}

	users, err := s.ListUsernames(ctx)
	if err != nil {
		t.Fatalf("ListUsernames() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("ListUsernames() = %v", users)
	}

	if err := s.DeleteTransaction(ctx, "alice", first.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if err := s.DeleteTransaction(ctx, "alice", first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func testLimits(t *testing.T, s storage.Store) {
	ctx := context.Background()

	if _, err := s.GetLimits(ctx, "carol"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before creation, got %v", err)
	}
	if err := s.UpdateLimits(ctx, core.LimitsConfig{Username: "carol", Limits: core.DefaultLimits()}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update before create: expected ErrNotFound, got %v", err)
	}

	cfg := core.LimitsConfig{Username: "carol", Limits: core.DefaultLimits(), UpdatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := s.CreateLimits(ctx, cfg); err != nil {
		t.Fatalf("CreateLimits() error = %v", err)
	}
	if err := s.CreateLimits(ctx, cfg); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("second create: expected ErrAlreadyExists, got %v", err)
	}

	cfg.Limits[core.GroupHousing] = decimal.RequireFromString("1200.50")
	if err := s.UpdateLimits(ctx, cfg); err != nil {
		t.Fatalf("UpdateLimits() error = %v", err)
	}
	got, err := s.GetLimits(ctx, "carol")
	if err != nil {
		t.Fatalf("GetLimits() error = %v", err)
	}
	if !got.Limits.Get(core.GroupHousing).Equal(decimal.RequireFromString("1200.5")) {
		t.Fatalf("housing limit = %s", got.Limits.Get(core.GroupHousing))
	}
	if len(got.Limits) != len(core.Groups()) {
		t.Fatalf("limits has %d groups", len(got.Limits))
	}
}

func testSummarySlot(t *testing.T, s storage.Store) {
	ctx := context.Background()
	window := 24 * time.Hour
	t0 := time.Date(2023, 5, 1, 9, 0, 0, 0, time.UTC)

	steps := []struct {
		at   time.Time
		want bool
	}{
		{t0, true},
		{t0.Add(time.Hour), false},
		{t0.Add(23 * time.Hour), false},
		{t0.Add(24 * time.Hour), true},
		{t0.Add(25 * time.Hour), false},
	}
	for i, st := range steps {
		got, err := s.ClaimSummarySlot(ctx, "dave", st.at, window)
		if err != nil {
			t.Fatalf("step %d: ClaimSummarySlot() error = %v", i, err)
		}
		if got != st.want {
			t.Fatalf("step %d at %v: got %v, want %v", i, st.at, got, st.want)
		}
	}
}

func testConcurrentClaims(t *testing.T, s storage.Store) {
	ctx := context.Background()
	now := time.Date(2023, 6, 1, 9, 0, 0, 0, time.UTC)

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ClaimSummarySlot(ctx, "erin", now, 24*time.Hour)
			if err != nil {
				t.Errorf("ClaimSummarySlot() error = %v", err)
				return
			}
			if ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()
	if granted.Load() != 1 {
		t.Fatalf("granted %d claims, want exactly 1", granted.Load())
	}
}
