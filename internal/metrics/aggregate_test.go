package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"expense-tracker/internal/core"

	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func tx(typ core.TransactionType, category string, amount int64, date time.Time) core.Transaction {
	return core.Transaction{
		ID:       category,
		Type:     typ,
		Category: category,
		Amount:   dec(amount),
		Date:     date,
	}
}

func recurring(t core.Transaction, period core.RecursionPeriod) core.Transaction {
	t.IsRecursive = true
	t.RecursionPeriod = period
	return t
}

func month(y int, m time.Month) core.MonthBucket {
	return core.MonthBucket{Year: y, Month: int(m)}
}

func TestAggregateNonRecurring(t *testing.T) {
	now := day(2023, 6, 1)
	tests := []struct {
		name        string
		tx          core.Transaction
		wantBalance decimal.Decimal
	}{
		{"past income", tx(core.Income, "salary", 1000, day(2023, 5, 1)), dec(1000)},
		{"past expense", tx(core.Expense, "groceries", 250, day(2023, 5, 1)), dec(-250)},
		{"future expense", tx(core.Expense, "groceries", 250, day(2023, 7, 1)), decimal.Zero},
		{"dated exactly now", tx(core.Income, "salary", 1000, now), decimal.Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Aggregate([]core.Transaction{tt.tx}, now)
			if err != nil {
				t.Fatal(err)
			}
			if !snap.Balance.Equal(tt.wantBalance) {
				t.Fatalf("balance = %s, want %s", snap.Balance, tt.wantBalance)
			}
		})
	}
}

func TestAggregateRecurringCount(t *testing.T) {
	rent := recurring(tx(core.Expense, "rent", 500, day(2023, 1, 1)), core.Monthly)
	snap, err := Aggregate([]core.Transaction{rent}, day(2023, 4, 1))
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Analytics.TotalExpense.Equal(dec(1000)) {
		t.Fatalf("total expense = %s, want 1000", snap.Analytics.TotalExpense)
	}
	if len(snap.ChartData.Expenses) != 2 {
		t.Fatalf("expected 2 months, got %v", snap.ChartData.Expenses.Months())
	}
	if _, ok := snap.ChartData.Expenses[month(2023, time.January)]; ok {
		t.Fatal("start month must not be folded")
	}
	if !snap.ChartData.Expenses.Get(month(2023, time.March), "housing").Equal(dec(500)) {
		t.Fatal("march housing not folded")
	}
}

func TestAggregateGroupsExpensesAndKeepsIncomeCategories(t *testing.T) {
	now := day(2023, 6, 1)
	snap, err := Aggregate([]core.Transaction{
		tx(core.Expense, "rent", 800, day(2023, 5, 2)),
		tx(core.Expense, "utilities", 100, day(2023, 5, 3)),
		tx(core.Income, "salary", 3000, day(2023, 5, 1)),
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	may := snap.ChartData.Expenses[month(2023, time.May)]
	if _, ok := may["rent"]; ok {
		t.Fatal("rent must be bucketed under its group")
	}
	if !may["housing"].Equal(dec(900)) {
		t.Fatalf("housing = %s, want 900", may["housing"])
	}
	if !snap.ChartData.Incomes.Get(month(2023, time.May), "salary").Equal(dec(3000)) {
		t.Fatal("salary not bucketed by category")
	}
}

func TestSavingsRate(t *testing.T) {
	now := day(2023, 6, 1)
	snap, err := Aggregate([]core.Transaction{
		tx(core.Income, "salary", 1000, day(2023, 5, 1)),
		tx(core.Expense, "groceries", 400, day(2023, 5, 1)),
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Analytics.SavingsRate.Equal(dec(60)) {
		t.Fatalf("savings rate = %s, want 60", snap.Analytics.SavingsRate)
	}

	snap, err = Aggregate([]core.Transaction{
		tx(core.Expense, "groceries", 400, day(2023, 5, 1)),
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Analytics.SavingsRate.IsZero() {
		t.Fatalf("savings rate without income = %s, want 0", snap.Analytics.SavingsRate)
	}
}

func TestMonthlyAverages(t *testing.T) {
	now := day(2023, 6, 1)
	snap, err := Aggregate([]core.Transaction{
		tx(core.Income, "salary", 1000, day(2023, 4, 1)),
		tx(core.Income, "salary", 2000, day(2023, 5, 1)),
		tx(core.Expense, "groceries", 300, day(2023, 3, 1)),
		tx(core.Expense, "groceries", 300, day(2023, 4, 1)),
		tx(core.Expense, "groceries", 300, day(2023, 5, 1)),
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	avg := snap.Analytics.MonthlyAverages
	if !avg.Income.Equal(dec(1500)) {
		t.Errorf("income average = %s", avg.Income)
	}
	if !avg.Expense.Equal(dec(300)) {
		t.Errorf("expense average = %s", avg.Expense)
	}
	if !avg.Balance.Equal(dec(700)) {
		t.Errorf("balance average = %s", avg.Balance)
	}

	empty, err := Aggregate(nil, now)
	if err != nil {
		t.Fatal(err)
	}
	if !empty.Analytics.MonthlyAverages.Balance.IsZero() || !empty.Balance.IsZero() {
		t.Fatal("empty history must aggregate to zeros")
	}
}

func TestAggregateBucketsInNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2023, 6, 1, 0, 0, 0, 0, loc)
	snap, err := Aggregate([]core.Transaction{
		tx(core.Expense, "fuel", 40, time.Date(2023, 4, 30, 23, 0, 0, 0, time.UTC)),
	}, now)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := snap.ChartData.Expenses[month(2023, time.May)]; !ok {
		t.Fatalf("expected bucket 05-2023, got %v", snap.ChartData.Expenses.Months())
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	now := day(2024, 3, 15)
	txs := []core.Transaction{
		recurring(tx(core.Income, "salary", 2500, day(2023, 1, 27)), core.Monthly),
		recurring(tx(core.Expense, "subscription", 13, day(2023, 2, 3)), core.Monthly),
		recurring(tx(core.Expense, "insurance", 600, day(2022, 5, 1)), core.Yearly),
		tx(core.Expense, "diningOut", 47, day(2023, 11, 4)),
		tx(core.Income, "bonus", 900, day(2023, 12, 20)),
	}
	txs[1].Amount = decimal.RequireFromString("12.99")

	first, err := Aggregate(txs, now)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Aggregate(txs, now)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Fatalf("aggregate not idempotent:\n%s\n%s", a, b)
	}
}

func TestAggregateUnknownPeriod(t *testing.T) {
	bad := recurring(tx(core.Expense, "rent", 1, day(2023, 1, 1)), "hourly")
	_, err := Aggregate([]core.Transaction{bad}, day(2023, 2, 1))
	if !errors.Is(err, ErrUnknownRecursionPeriod) {
		t.Fatalf("expected ErrUnknownRecursionPeriod, got %v", err)
	}
}

func TestSnapshotJSONShape(t *testing.T) {
	snap, err := Aggregate([]core.Transaction{
		tx(core.Expense, "rent", 800, day(2023, 3, 2)),
	}, day(2023, 6, 1))
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		ChartData struct {
			Expenses map[string]map[string]decimal.Decimal `json:"expenses"`
		} `json:"chartData"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if !decoded.ChartData.Expenses["03-2023"]["housing"].Equal(dec(800)) {
		t.Fatalf("unexpected chart data: %s", raw)
	}
}

func TestAggregateStepsInNowLocation(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// Stores hand dates back in UTC; midnight in Rome is 22:00 or 23:00 UTC
	// the previous day.
	stored := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, rome).UTC()
	}

	tests := []struct {
		name string
		tx   core.Transaction
		now  time.Time
		want []string
	}{
		{
			name: "monthly across spring DST",
			tx:   recurring(tx(core.Expense, "rent", 500, stored(2023, 3, 1)), core.Monthly),
			now:  time.Date(2023, 6, 15, 0, 0, 0, 0, rome),
			want: []string{"04-2023", "05-2023", "06-2023"},
		},
		{
			name: "monthly across autumn DST and year end",
			tx:   recurring(tx(core.Expense, "rent", 500, stored(2023, 10, 1)), core.Monthly),
			now:  time.Date(2024, 1, 15, 0, 0, 0, 0, rome),
			want: []string{"11-2023", "12-2023", "01-2024"},
		},
		{
			name: "end date stored in UTC",
			tx: func() core.Transaction {
				r := recurring(tx(core.Expense, "rent", 500, stored(2023, 3, 1)), core.Monthly)
				r.EndDate = stored(2023, 5, 1)
				return r
			}(),
			now:  time.Date(2023, 6, 15, 0, 0, 0, 0, rome),
			want: []string{"04-2023"},
		},
		{
			name: "non-recurring local midnight",
			tx:   tx(core.Expense, "fuel", 40, stored(2023, 5, 1)),
			now:  time.Date(2023, 6, 15, 0, 0, 0, 0, rome),
			want: []string{"05-2023"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Aggregate([]core.Transaction{tt.tx}, tt.now)
			if err != nil {
				t.Fatal(err)
			}
			months := snap.ChartData.Expenses.Months()
			got := make([]string, len(months))
			for i, m := range months {
				got[i] = m.String()
			}
			if len(got) != len(tt.want) {
				t.Fatalf("months = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("months = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
