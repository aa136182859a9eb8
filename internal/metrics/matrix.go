package metrics

import (
	"expense-tracker/internal/core"

	"github.com/shopspring/decimal"
)

// Matrix accumulates amounts per month bucket and per bucket key (an expense
// group or an income category). It marshals to {"MM-YYYY": {key: amount}}.
type Matrix map[core.MonthBucket]map[string]decimal.Decimal

// Add accumulates amount at (month, key), creating missing rows and cells.
func (m Matrix) Add(month core.MonthBucket, key string, amount decimal.Decimal) {
	row, ok := m[month]
	if !ok {
		row = make(map[string]decimal.Decimal)
		m[month] = row
	}
	row[key] = row[key].Add(amount)
}

// Get returns the value at (month, key), zero when absent.
func (m Matrix) Get(month core.MonthBucket, key string) decimal.Decimal {
	return m[month][key]
}

// Months returns the populated month buckets, oldest first.
func (m Matrix) Months() []core.MonthBucket {
	out := make([]core.MonthBucket, 0, len(m))
	for b := range m {
		out = append(out, b)
	}
	core.SortMonthBuckets(out)
	return out
}

// MonthTotal sums every key of one month.
func (m Matrix) MonthTotal(month core.MonthBucket) decimal.Decimal {
	total := decimal.Zero
	for _, v := range m[month] {
		total = total.Add(v)
	}
	return total
}
