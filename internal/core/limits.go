package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeLimit = errors.New("limit must not be negative")
	ErrUnknownGroup  = errors.New("unknown expense group")
)

// Limits maps each expense group to a monthly spending cap. Zero means no
// limit for that group.
type Limits map[Group]decimal.Decimal

// LimitsConfig is the per-user limits record.
type LimitsConfig struct {
	Username  string    `json:"username"`
	Limits    Limits    `json:"limits"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultLimits returns a Limits value with every group set to zero.
func DefaultLimits() Limits {
	l := make(Limits, len(groups))
	for _, g := range groups {
		l[g.Group] = decimal.Zero
	}
	return l
}

// Get returns the limit for g, zero when unset.
func (l Limits) Get(g Group) decimal.Decimal {
	if v, ok := l[g]; ok {
		return v
	}
	return decimal.Zero
}

// Validate rejects unknown groups and negative values.
func (l Limits) Validate() error {
	var errs []error
	for g, v := range l {
		if !IsValidGroup(g) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownGroup, g))
			continue
		}
		if v.IsNegative() {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNegativeLimit, g))
		}
	}
	return errors.Join(errs...)
}

// Merge returns a copy of the defaults overlaid with l, so every group is
// present exactly once.
func (l Limits) Merge() Limits {
	out := DefaultLimits()
	for g, v := range l {
		if IsValidGroup(g) {
			out[g] = v
		}
	}
	return out
}

// ExceededLimit is one (month, group) pair whose spending crossed its cap.
type ExceededLimit struct {
	Date   string          `json:"date"`
	Group  Group           `json:"group"`
	Amount decimal.Decimal `json:"amount"`
	Limit  decimal.Decimal `json:"limit"`
}

// Excess is the amount spent above the limit.
func (e ExceededLimit) Excess() decimal.Decimal {
	return e.Amount.Sub(e.Limit)
}

// PercentOver is the excess as a percentage of the limit, rounded to one
// decimal place.
func (e ExceededLimit) PercentOver() decimal.Decimal {
	if !e.Limit.IsPositive() {
		return decimal.Zero
	}
	return e.Excess().Div(e.Limit).Mul(decimal.NewFromInt(100)).Round(1)
}
