package metrics

import (
	"testing"
	"time"

	"expense-tracker/internal/core"

	"github.com/shopspring/decimal"
)

func TestCompareToLimitsBoundaries(t *testing.T) {
	may := month(2023, time.May)
	tests := []struct {
		name   string
		actual int64
		limit  int64
		want   bool
	}{
		{"zero limit never triggers", 10000, 0, false},
		{"equal is not exceeded", 100, 100, false},
		{"one over is exceeded", 101, 100, true},
		{"under limit", 50, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Matrix{}
			m.Add(may, string(core.GroupHousing), dec(tt.actual))
			limits := core.Limits{core.GroupHousing: dec(tt.limit)}

			got := CompareToLimits(m, limits)
			if (len(got) == 1) != tt.want {
				t.Fatalf("CompareToLimits() = %v, want exceeded=%v", got, tt.want)
			}
			if tt.want {
				e := got[0]
				if e.Date != "05-2023" || e.Group != core.GroupHousing || !e.Amount.Equal(dec(tt.actual)) || !e.Limit.Equal(dec(tt.limit)) {
					t.Fatalf("unexpected entry %+v", e)
				}
			}
		})
	}
}

func TestCompareToLimitsChronologicalOrder(t *testing.T) {
	m := Matrix{}
	m.Add(month(2024, time.January), "leisure", dec(500))
	m.Add(month(2023, time.March), "living", dec(500))
	m.Add(month(2023, time.March), "housing", dec(500))
	m.Add(month(2023, time.December), "leisure", dec(500))

	limits := core.DefaultLimits()
	limits[core.GroupLeisure] = dec(100)
	limits[core.GroupLiving] = dec(100)
	limits[core.GroupHousing] = dec(100)

	got := CompareToLimits(m, limits)
	want := []struct {
		date  string
		group core.Group
	}{
		{"03-2023", core.GroupHousing},
		{"03-2023", core.GroupLiving},
		{"12-2023", core.GroupLeisure},
		{"01-2024", core.GroupLeisure},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Date != w.date || got[i].Group != w.group {
			t.Errorf("entry %d = %s/%s, want %s/%s", i, got[i].Date, got[i].Group, w.date, w.group)
		}
	}
}

func TestCompareToLimitsMissingGroupIsUnbounded(t *testing.T) {
	m := Matrix{}
	m.Add(month(2023, time.May), "family", dec(999))
	if got := CompareToLimits(m, core.Limits{}); len(got) != 0 {
		t.Fatalf("expected no entries, got %v", got)
	}
	if got := CompareToLimits(m, nil); len(got) != 0 {
		t.Fatalf("expected no entries for nil limits, got %v", got)
	}
}

func TestTotalExcessAndForMonth(t *testing.T) {
	entries := []core.ExceededLimit{
		{Date: "03-2023", Group: core.GroupHousing, Amount: dec(150), Limit: dec(100)},
		{Date: "04-2023", Group: core.GroupLiving, Amount: decimal.RequireFromString("80.5"), Limit: dec(80)},
	}
	if got := TotalExcess(entries); !got.Equal(decimal.RequireFromString("50.5")) {
		t.Fatalf("total excess = %s", got)
	}
	april := ForMonth(entries, month(2023, time.April))
	if len(april) != 1 || april[0].Group != core.GroupLiving {
		t.Fatalf("ForMonth() = %v", april)
	}
}
