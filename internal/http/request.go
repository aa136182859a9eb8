package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"expense-tracker/internal/core"
	"expense-tracker/internal/services"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var errInvalidDate = errors.New("dates must be YYYY-MM-DD or RFC 3339")

// transactionRequest is the create/update body. Amounts may be sent as a
// JSON number or string and use either '.' or ',' as decimal separator.
type transactionRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Amount          json.RawMessage `json:"amount"`
	Type            string          `json:"type"`
	Category        string          `json:"category"`
	Date            string          `json:"date"`
	IsRecursive     bool            `json:"isRecursive"`
	RecursionPeriod string          `json:"recursionPeriod"`
	EndDate         string          `json:"endDate"`
}

// toTransaction converts the body, reporting every field that cannot be
// parsed as a validation error. Rule checks are left to the service.
func (req transactionRequest) toTransaction(loc *time.Location) (core.Transaction, error) {
	tx := core.Transaction{
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		Type:            core.TransactionType(req.Type),
		Category:        req.Category,
		IsRecursive:     req.IsRecursive,
		RecursionPeriod: core.RecursionPeriod(req.RecursionPeriod),
	}

	var errs []error
	amount, err := parseAmount(req.Amount)
	if err != nil {
		errs = append(errs, err)
	}
	tx.Amount = amount

	if req.Date == "" {
		errs = append(errs, core.ErrMissingDate)
	} else if tx.Date, err = parseDate(req.Date, loc); err != nil {
		errs = append(errs, fmt.Errorf("date: %w", err))
	}
	if req.EndDate != "" {
		if tx.EndDate, err = parseDate(req.EndDate, loc); err != nil {
			errs = append(errs, fmt.Errorf("endDate: %w", err))
		}
	}

	if len(errs) > 0 {
		return core.Transaction{}, fmt.Errorf("%w: %w", services.ErrValidation, errors.Join(errs...))
	}
	return tx, nil
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, core.ErrInvalidAmount
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, core.ErrInvalidAmount
		}
	}
	return core.ParseAmount(s)
}

// parseDate accepts a calendar date, interpreted at midnight in loc, or a
// full RFC 3339 timestamp.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, errInvalidDate
}

type limitsRequest struct {
	Limits core.Limits `json:"limits"`
}
