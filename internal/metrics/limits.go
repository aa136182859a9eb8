package metrics

import (
	"sort"

	"expense-tracker/internal/core"

	"github.com/shopspring/decimal"
)

// CompareToLimits reports every (month, group) whose spending is strictly
// above a positive limit. A zero limit never triggers. Entries are ordered
// chronologically, then by group display order.
func CompareToLimits(expenses Matrix, limits core.Limits) []core.ExceededLimit {
	type entry struct {
		month core.MonthBucket
		core.ExceededLimit
	}
	var found []entry

	for month, row := range expenses {
		for key, actual := range row {
			g := core.Group(key)
			limit := limits.Get(g)
			if !limit.IsPositive() || !actual.GreaterThan(limit) {
				continue
			}
			found = append(found, entry{
				month: month,
				ExceededLimit: core.ExceededLimit{
					Date:   month.String(),
					Group:  g,
					Amount: actual,
					Limit:  limit,
				},
			})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].month != found[j].month {
			return found[i].month.Before(found[j].month)
		}
		return core.GroupOrder(found[i].Group) < core.GroupOrder(found[j].Group)
	})

	out := make([]core.ExceededLimit, len(found))
	for i, e := range found {
		out[i] = e.ExceededLimit
	}
	return out
}

// ForMonth keeps only the entries of one month bucket.
func ForMonth(entries []core.ExceededLimit, month core.MonthBucket) []core.ExceededLimit {
	key := month.String()
	var out []core.ExceededLimit
	for _, e := range entries {
		if e.Date == key {
			out = append(out, e)
		}
	}
	return out
}

// TotalExcess sums how far each entry went over its limit.
func TotalExcess(entries []core.ExceededLimit) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Excess())
	}
	return total
}
