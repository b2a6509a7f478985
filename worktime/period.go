package worktime

import "time"

// =============================================================================
// PERIOD - Inclusive date range used as an aggregation scope
// =============================================================================

// Period is an inclusive range of calendar dates [Start, End].
// It is the scope of every aggregation: a single day, a Monday-start
// week, or a calendar month (the accounting period).
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func DayPeriod(d Date) Period { return Period{Start: d, End: d} }

// WeekPeriod returns the Monday..Sunday week containing d.
func WeekPeriod(d Date) Period {
	start := d.StartOfWeek()
	return Period{Start: start, End: start.AddDays(6)}
}

// MonthPeriod returns the calendar month containing d.
func MonthPeriod(d Date) Period {
	return Period{Start: d.StartOfMonth(), End: d.EndOfMonth()}
}

// NewPeriod validates the bounds.
func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns all days in the period.
func (p Period) Days() []Date {
	var days []Date
	for d := p.Start; d.BeforeOrEqual(p.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Bounds returns [local midnight of Start, local midnight after End).
func (p Period) Bounds(loc *time.Location) (time.Time, time.Time) {
	return p.Start.Start(loc), p.End.AddDays(1).Start(loc)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// PreviousMonth returns the calendar month before the one containing Start.
func (p Period) PreviousMonth() Period {
	return MonthPeriod(p.Start.StartOfMonth().AddDays(-1))
}
