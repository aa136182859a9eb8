package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validExpense() Transaction {
	return Transaction{
		Username:    "alice",
		Title:       "Rent",
		Description: "January rent",
		Amount:      decimal.NewFromInt(800),
		Type:        Expense,
		Category:    "rent",
		Date:        time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validExpense().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"short title", func(tx *Transaction) { tx.Title = "ab" }, ErrInvalidTitle},
		{"short description", func(tx *Transaction) { tx.Description = " x " }, ErrInvalidDescription},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"unknown type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"income category on expense", func(tx *Transaction) { tx.Category = "salary" }, ErrInvalidCategory},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, ErrMissingDate},
		{"recurring without period", func(tx *Transaction) { tx.IsRecursive = true }, ErrMissingPeriod},
		{"unknown period", func(tx *Transaction) {
			tx.IsRecursive = true
			tx.RecursionPeriod = "weekly"
		}, ErrInvalidPeriod},
		{"period without recurrence", func(tx *Transaction) { tx.RecursionPeriod = Monthly }, ErrUnexpectedPeriod},
		{"end date without recurrence", func(tx *Transaction) { tx.EndDate = tx.Date.AddDate(0, 1, 0) }, ErrUnexpectedEndDate},
		{"end before start", func(tx *Transaction) {
			tx.IsRecursive = true
			tx.RecursionPeriod = Monthly
			tx.EndDate = tx.Date.AddDate(0, 0, -1)
		}, ErrEndBeforeStart},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validExpense()
			tc.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestTransactionValidateReportsEveryRule(t *testing.T) {
	tx := Transaction{Type: Income, Category: "rent"}
	err := tx.Validate()
	for _, want := range []error{ErrInvalidTitle, ErrInvalidDescription, ErrInvalidAmount, ErrInvalidCategory, ErrMissingDate} {
		if !errors.Is(err, want) {
			t.Errorf("expected %v in %v", want, err)
		}
	}
}

func TestRecurringWithEndDateIsValid(t *testing.T) {
	tx := validExpense()
	tx.IsRecursive = true
	tx.RecursionPeriod = Monthly
	tx.EndDate = tx.Date
	if err := tx.Validate(); err != nil {
		t.Fatalf("end date equal to date should be accepted, got %v", err)
	}
}

func TestSignedDelta(t *testing.T) {
	tx := validExpense()
	if got := tx.SignedDelta(); !got.Equal(decimal.NewFromInt(-800)) {
		t.Fatalf("expense delta = %s", got)
	}
	tx.Type = Income
	if got := tx.SignedDelta(); !got.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("income delta = %s", got)
	}
}

func TestTransactionJSONEndDate(t *testing.T) {
	keys := func(tx Transaction) map[string]json.RawMessage {
		t.Helper()
		b, err := json.Marshal(tx)
		if err != nil {
			t.Fatal(err)
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatal(err)
		}
		return m
	}

	once := keys(validExpense())
	if _, ok := once["endDate"]; ok {
		t.Errorf("endDate present on a one-off transaction: %s", once["endDate"])
	}
	if string(once["category"]) != `"rent"` || string(once["date"]) != `"2023-01-01T00:00:00Z"` {
		t.Errorf("unexpected fields: category=%s date=%s", once["category"], once["date"])
	}

	rec := validExpense()
	rec.IsRecursive = true
	rec.RecursionPeriod = Monthly
	rec.EndDate = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := string(keys(rec)["endDate"]); got != `"2023-06-01T00:00:00Z"` {
		t.Errorf("endDate = %s", got)
	}

	var back Transaction
	b, _ := json.Marshal(rec)
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !back.EndDate.Equal(rec.EndDate) || back.RecursionPeriod != Monthly {
		t.Errorf("decoded %+v", back)
	}
}
