package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultLimitsCoverEveryGroup(t *testing.T) {
	l := DefaultLimits()
	for _, g := range Groups() {
		v, ok := l[g]
		if !ok || !v.IsZero() {
			t.Fatalf("group %s: %v %v", g, v, ok)
		}
	}
}

func TestLimitsValidate(t *testing.T) {
	ok := Limits{GroupHousing: decimal.NewFromInt(1000), GroupLeisure: decimal.Zero}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	neg := Limits{GroupHousing: decimal.NewFromInt(-1)}
	if err := neg.Validate(); !errors.Is(err, ErrNegativeLimit) {
		t.Fatalf("expected ErrNegativeLimit, got %v", err)
	}
	unknown := Limits{"pets": decimal.NewFromInt(1)}
	if err := unknown.Validate(); !errors.Is(err, ErrUnknownGroup) {
		t.Fatalf("expected ErrUnknownGroup, got %v", err)
	}
}

func TestLimitsMerge(t *testing.T) {
	m := Limits{GroupFamily: decimal.NewFromInt(50)}.Merge()
	if len(m) != len(Groups()) {
		t.Fatalf("merged limits has %d groups", len(m))
	}
	if !m.Get(GroupFamily).Equal(decimal.NewFromInt(50)) {
		t.Fatalf("family limit = %s", m.Get(GroupFamily))
	}
}

func TestExceededLimitExcess(t *testing.T) {
	e := ExceededLimit{Amount: decimal.NewFromInt(150), Limit: decimal.NewFromInt(120)}
	if !e.Excess().Equal(decimal.NewFromInt(30)) {
		t.Fatalf("excess = %s", e.Excess())
	}
	if got := e.PercentOver().String(); got != "25" {
		t.Fatalf("percent over = %s", got)
	}
}

func TestExceededLimitJSONKeys(t *testing.T) {
	raw, err := json.Marshal(ExceededLimit{
		Date:   "03-2023",
		Group:  GroupHousing,
		Amount: decimal.NewFromInt(150),
		Limit:  decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"date", "group", "amount", "limit"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing %q in %s", key, raw)
		}
	}
	if len(fields) != 4 {
		t.Errorf("unexpected keys in %s", raw)
	}
	if string(fields["group"]) != `"housing"` {
		t.Errorf("group = %s, want \"housing\"", fields["group"])
	}
}
