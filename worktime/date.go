package worktime

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Civil calendar date (no time of day, no zone)
// =============================================================================

// Date is a calendar day on the user's wall clock. Dates are compared and
// stepped without any time zone so that DST transitions never shift a day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// NewDate normalizes out-of-range values the way time.Date does
// (e.g. April 31 becomes May 1).
func NewDate(year int, month time.Month, day int) Date {
	return dateFromTime(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t on the wall clock of loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return dateFromTime(t.In(loc))
}

// ParseDate parses "YYYY-MM-DD". It is the only way dates enter from outside.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Message: fmt.Sprintf("%q is not YYYY-MM-DD", s), Err: ErrInvalidDate}
	}
	return dateFromTime(t), nil
}

// MustParseDate is for tests and constant tables.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func dateFromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// noon in UTC is the anchor for arithmetic
func (d Date) anchor() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

// Start returns local midnight of d in loc.
func (d Date) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return dateFromTime(d.anchor().AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return dateFromTime(d.anchor().AddDate(0, n, 0)) }

// Comparison
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (d Date) Before(o Date) bool        { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool         { return d.Compare(o) > 0 }
func (d Date) Equal(o Date) bool         { return d.Compare(o) == 0 }
func (d Date) BeforeOrEqual(o Date) bool { return d.Compare(o) <= 0 }
func (d Date) AfterOrEqual(o Date) bool  { return d.Compare(o) >= 0 }

// Properties
func (d Date) Weekday() time.Weekday { return d.anchor().Weekday() }
func (d Date) IsZero() bool          { return d == Date{} }
func (d Date) String() string        { return d.anchor().Format(dateLayout) }

// StartOfMonth / EndOfMonth bound the accounting period containing d.
func (d Date) StartOfMonth() Date { return Date{Year: d.Year, Month: d.Month, Day: 1} }
func (d Date) EndOfMonth() Date   { return d.StartOfMonth().AddMonths(1).AddDays(-1) }

// StartOfWeek returns the Monday on or before d.
func (d Date) StartOfWeek() Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// DaysBetween returns the number of days from a to b (negative if b < a).
func DaysBetween(a, b Date) int {
	return int(b.anchor().Sub(a.anchor()).Hours() / 24)
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
