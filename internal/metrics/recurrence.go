// Package metrics turns a user's transaction history into balances, per-month
// chart data, analytics and exceeded-limit reports.
//
// Everything here is a pure function of its inputs: callers fetch the
// transactions and limits and pass the clock in explicitly.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"expense-tracker/internal/core"
)

var ErrUnknownRecursionPeriod = errors.New("unknown recursion period")

// Advancer moves an occurrence date forward by one recursion period.
type Advancer interface {
	Advance(t time.Time) time.Time
}

// AdvancerFunc adapts a plain function to Advancer.
type AdvancerFunc func(time.Time) time.Time

func (f AdvancerFunc) Advance(t time.Time) time.Time { return f(t) }

// advancers maps recursion periods to their step. Month and year steps use
// AddDate normalisation, so Jan 31 + 1 month is Mar 3 (Mar 2 in leap years).
var advancers = map[core.RecursionPeriod]Advancer{
	core.Daily:   AdvancerFunc(func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }),
	core.Monthly: AdvancerFunc(func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }),
	core.Yearly:  AdvancerFunc(func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }),
}

// AdvancerFor returns the step for period.
func AdvancerFor(period core.RecursionPeriod) (Advancer, error) {
	a, ok := advancers[period]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecursionPeriod, period)
	}
	return a, nil
}

// RegisterAdvancer adds or replaces the step for a period. It must be called
// before any expansion runs; the registry is not guarded for concurrent writes.
func RegisterAdvancer(period core.RecursionPeriod, a Advancer) {
	advancers[period] = a
}

// Sequence lazily yields the occurrence dates of a recurring transaction:
// start, start+1 period, ... while the date is before both the end date
// (now when open-ended) and now. A start after now yields nothing.
type Sequence struct {
	start   time.Time
	bound   time.Time
	adv     Advancer
	pointer time.Time
	future  bool
	done    bool
}

// NewSequence builds the sequence for one recurring transaction. A zero end
// means the recurrence is open-ended.
func NewSequence(start, end time.Time, period core.RecursionPeriod, now time.Time) (*Sequence, error) {
	adv, err := AdvancerFor(period)
	if err != nil {
		return nil, err
	}
	bound := now
	if !end.IsZero() && end.Before(now) {
		bound = end
	}
	s := &Sequence{start: start, bound: bound, adv: adv, future: start.After(now)}
	s.Reset()
	return s, nil
}

// Next returns the next occurrence, or false once the sequence is exhausted.
func (s *Sequence) Next() (time.Time, bool) {
	if s.done || !s.pointer.Before(s.bound) {
		s.done = true
		return time.Time{}, false
	}
	cur := s.pointer
	s.pointer = s.adv.Advance(cur)
	return cur, true
}

// Reset rewinds the sequence to its first occurrence.
func (s *Sequence) Reset() {
	s.pointer = s.start
	s.done = s.future
}

// All rewinds and returns every occurrence, the start date included.
func (s *Sequence) All() []time.Time {
	s.Reset()
	var out []time.Time
	for {
		t, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}

// Occurrences returns the dates that are folded into aggregates. The start
// date itself is never folded, only the occurrences after it.
func (s *Sequence) Occurrences() []time.Time {
	all := s.All()
	if len(all) <= 1 {
		return nil
	}
	return all[1:]
}

// Expand is a convenience wrapper returning the folded occurrences of a
// recurring transaction.
func Expand(start, end time.Time, period core.RecursionPeriod, now time.Time) ([]time.Time, error) {
	s, err := NewSequence(start, end, period, now)
	if err != nil {
		return nil, err
	}
	return s.Occurrences(), nil
}
