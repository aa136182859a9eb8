package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	Daily   RecursionPeriod = "daily"
	Monthly RecursionPeriod = "monthly"
	Yearly  RecursionPeriod = "yearly"
)

type (
	TransactionType string

	RecursionPeriod string

	// Transaction is one income or expense record owned by a single user.
	// A recurring transaction repeats every RecursionPeriod starting at Date
	// until EndDate, or indefinitely when EndDate is zero.
	Transaction struct {
		ID              string          `json:"id"`
		Username        string          `json:"username"`
		Title           string          `json:"title"`
		Description     string          `json:"description"`
		Amount          decimal.Decimal `json:"amount"`
		Type            TransactionType `json:"type"`
		Category        string          `json:"category"`
		Date            time.Time       `json:"date"`
		IsRecursive     bool            `json:"isRecursive"`
		RecursionPeriod RecursionPeriod `json:"recursionPeriod,omitempty"`
		EndDate         time.Time       `json:"endDate,omitempty"`
		CreatedAt       time.Time       `json:"createdAt"`
		UpdatedAt       time.Time       `json:"updatedAt"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidCategory    = errors.New("category not valid for transaction type")
	ErrInvalidPeriod      = errors.New("invalid recursion period")
	ErrMissingPeriod      = errors.New("recurring transaction requires a recursion period")
	ErrUnexpectedPeriod   = errors.New("recursion period set on a non-recurring transaction")
	ErrMissingDate        = errors.New("date cannot be zero")
	ErrEndBeforeStart     = errors.New("end date must not be before date")
	ErrUnexpectedEndDate  = errors.New("end date set on a non-recurring transaction")
	ErrInvalidTitle       = errors.New("title must be between 3 and 100 characters")
	ErrInvalidDescription = errors.New("description must be between 3 and 300 characters")
	ErrEmptyUsername      = errors.New("empty username")
)

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	return t == Expense || t == Income
}

// IsValid reports whether p is one of the known recursion periods.
func (p RecursionPeriod) IsValid() bool {
	switch p {
	case Daily, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// SignedDelta returns the amount with the sign it contributes to a balance:
// positive for income, negative for expenses.
func (tx Transaction) SignedDelta() decimal.Decimal {
	if tx.Type == Income {
		return tx.Amount
	}
	return tx.Amount.Neg()
}

// HasEndDate reports whether a recurring transaction is bounded.
func (tx Transaction) HasEndDate() bool {
	return !tx.EndDate.IsZero()
}

// MarshalJSON leaves out a zero EndDate, which omitempty cannot do for a
// time.Time.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	var end *time.Time
	if tx.HasEndDate() {
		end = &tx.EndDate
	}
	return json.Marshal(struct {
		plain
		EndDate *time.Time `json:"endDate,omitempty"`
	}{plain(tx), end})
}

// Validate checks a transaction at ingestion time. Every violated rule is
// reported; the returned error matches each sentinel with errors.Is.
func (tx Transaction) Validate() error {
	var errs []error

	if n := utf8.RuneCountInString(strings.TrimSpace(tx.Title)); n < 3 || n > 100 {
		errs = append(errs, ErrInvalidTitle)
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(tx.Description)); n < 3 || n > 300 {
		errs = append(errs, ErrInvalidDescription)
	}
	if !tx.Amount.IsPositive() {
		errs = append(errs, ErrInvalidAmount)
	}

	if !tx.Type.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidType, tx.Type))
	} else if !IsValidCategory(tx.Type, tx.Category) {
		errs = append(errs, fmt.Errorf("%w: %q for %s", ErrInvalidCategory, tx.Category, tx.Type))
	}

	if tx.Date.IsZero() {
		errs = append(errs, ErrMissingDate)
	}

	switch {
	case tx.IsRecursive && tx.RecursionPeriod == "":
		errs = append(errs, ErrMissingPeriod)
	case tx.IsRecursive && !tx.RecursionPeriod.IsValid():
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidPeriod, tx.RecursionPeriod))
	case !tx.IsRecursive && tx.RecursionPeriod != "":
		errs = append(errs, ErrUnexpectedPeriod)
	}

	if tx.HasEndDate() {
		if !tx.IsRecursive {
			errs = append(errs, ErrUnexpectedEndDate)
		} else if !tx.Date.IsZero() && tx.EndDate.Before(tx.Date) {
			errs = append(errs, ErrEndBeforeStart)
		}
	}

	return errors.Join(errs...)
}
