package metrics

import (
	"fmt"
	"time"

	"expense-tracker/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type ChartData struct {
	Expenses Matrix `json:"expenses"`
	Incomes  Matrix `json:"incomes"`
}

type MonthlyAverages struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// Analytics holds the derived totals. Ratios that would divide by zero are
// reported as zero.
type Analytics struct {
	TotalIncome     decimal.Decimal `json:"totalIncome"`
	TotalExpense    decimal.Decimal `json:"totalExpense"`
	SavingsRate     decimal.Decimal `json:"savingsRate"`
	MonthlyAverages MonthlyAverages `json:"monthlyAverages"`
}

// Snapshot is the full aggregate of one user's history at a point in time.
type Snapshot struct {
	Balance   decimal.Decimal `json:"balance"`
	ChartData ChartData       `json:"chartData"`
	Analytics Analytics       `json:"analytics"`
}

// Aggregate folds txs in slice order as observed at now. Month buckets and
// recurrence steps are computed in now's location, whatever zone the stored
// dates carry.
//
// A non-recurring transaction counts once when dated before now. A recurring
// one counts once per occurrence after its start date, up to its end date
// and now. Input is assumed validated; the only error is an unknown
// recursion period.
func Aggregate(txs []core.Transaction, now time.Time) (Snapshot, error) {
	loc := now.Location()
	acc := newAccumulator(loc)

	for _, tx := range txs {
		start := tx.Date.In(loc)
		if !tx.IsRecursive {
			if start.Before(now) {
				acc.fold(tx, start)
			}
			continue
		}
		end := tx.EndDate
		if !end.IsZero() {
			end = end.In(loc)
		}
		occ, err := Expand(start, end, tx.RecursionPeriod, now)
		if err != nil {
			return Snapshot{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		for _, d := range occ {
			acc.fold(tx, d)
		}
	}

	return acc.snapshot(), nil
}

type accumulator struct {
	loc          *time.Location
	balance      decimal.Decimal
	totalIncome  decimal.Decimal
	totalExpense decimal.Decimal
	expenses     Matrix
	incomes      Matrix
}

func newAccumulator(loc *time.Location) *accumulator {
	return &accumulator{
		loc:      loc,
		expenses: Matrix{},
		incomes:  Matrix{},
	}
}

func (a *accumulator) fold(tx core.Transaction, at time.Time) {
	month := core.BucketOf(at, a.loc)
	a.balance = a.balance.Add(tx.SignedDelta())

	switch tx.Type {
	case core.Expense:
		a.expenses.Add(month, bucketKey(tx), tx.Amount)
		a.totalExpense = a.totalExpense.Add(tx.Amount)
	case core.Income:
		a.incomes.Add(month, bucketKey(tx), tx.Amount)
		a.totalIncome = a.totalIncome.Add(tx.Amount)
	}
}

// bucketKey is the expense group for expenses and the raw category for
// incomes. Unmapped expense categories keep their own name.
func bucketKey(tx core.Transaction) string {
	if tx.Type == core.Expense {
		if g, ok := core.GroupOf(tx.Category); ok {
			return string(g)
		}
	}
	return tx.Category
}

func (a *accumulator) snapshot() Snapshot {
	net := a.totalIncome.Sub(a.totalExpense)
	incomeMonths := int64(len(a.incomes))
	expenseMonths := int64(len(a.expenses))

	return Snapshot{
		Balance: a.balance,
		ChartData: ChartData{
			Expenses: a.expenses,
			Incomes:  a.incomes,
		},
		Analytics: Analytics{
			TotalIncome:  a.totalIncome,
			TotalExpense: a.totalExpense,
			SavingsRate:  savingsRate(a.totalIncome, a.totalExpense),
			MonthlyAverages: MonthlyAverages{
				Income:  average(a.totalIncome, incomeMonths),
				Expense: average(a.totalExpense, expenseMonths),
				Balance: average(net, max(incomeMonths, expenseMonths)),
			},
		},
	}
}

// savingsRate is (income-expense)/income as a percentage, zero without income.
func savingsRate(income, expense decimal.Decimal) decimal.Decimal {
	if income.IsZero() {
		return decimal.Zero
	}
	return income.Sub(expense).Div(income).Mul(hundred).Round(2)
}

func average(total decimal.Decimal, months int64) decimal.Decimal {
	if months == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(months)).Round(2)
}
