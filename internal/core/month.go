package core

import (
	"fmt"
	"sort"
	"time"
)

// MonthBucket identifies a calendar month. Its string form is "MM-YYYY".
type MonthBucket struct {
	Year  int
	Month int // 1-12
}

// BucketOf returns the month bucket of t as seen in loc.
func BucketOf(t time.Time, loc *time.Location) MonthBucket {
	if loc != nil {
		t = t.In(loc)
	}
	return MonthBucket{Year: t.Year(), Month: int(t.Month())}
}

func (b MonthBucket) String() string {
	return fmt.Sprintf("%02d-%04d", b.Month, b.Year)
}

// Before orders buckets chronologically.
func (b MonthBucket) Before(o MonthBucket) bool {
	if b.Year != o.Year {
		return b.Year < o.Year
	}
	return b.Month < o.Month
}

// ParseMonthBucket parses the "MM-YYYY" form produced by String.
func ParseMonthBucket(s string) (MonthBucket, error) {
	t, err := time.Parse("01-2006", s)
	if err != nil {
		return MonthBucket{}, fmt.Errorf("invalid month bucket %q: %w", s, err)
	}
	return MonthBucket{Year: t.Year(), Month: int(t.Month())}, nil
}

// SortMonthBuckets sorts in place, oldest first.
func SortMonthBuckets(bs []MonthBucket) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].Before(bs[j]) })
}

func (b MonthBucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *MonthBucket) UnmarshalText(text []byte) error {
	parsed, err := ParseMonthBucket(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
