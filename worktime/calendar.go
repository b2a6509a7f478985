/*
calendar.go - Calendar rules: how many minutes a day requires

PURPOSE:

	Answers "what is the target for this date?". The target depends on the
	weekday and on the holiday set:

	  non-working weekday (Sat/Sun by default)  -> 0
	  active holiday (public or custom)         -> 0
	  designated short weekday (Friday)         -> ShortDayMinutes (450)
	  any other weekday                         -> StandardMinutes (510)

	Targets are whole minutes. Fractional hours from configuration are
	converted once, exactly, by the factory package.

SEE ALSO:
  - holidays.go: HolidaySet
  - factory/rules.go: Builds Rules from JSON/YAML
*/
package worktime

import (
	"fmt"
	"time"
)

// Default targets.
const (
	DefaultStandardMinutes = 510 // 8h30
	DefaultShortDayMinutes = 450 // 7h30
)

// Rules is the immutable rule set threaded into every engine call.
type Rules struct {
	// Targets holds the required minutes per weekday (indexed by
	// time.Weekday). A zero entry marks a non-working weekday.
	Targets [7]int

	// Location is the user's wall clock. Day boundaries are local midnights.
	Location *time.Location
}

// DefaultRules: Monday-Thursday 510, Friday 450, weekend 0, UTC.
func DefaultRules() Rules {
	return NewRules(DefaultStandardMinutes, time.Friday, DefaultShortDayMinutes,
		[]time.Weekday{time.Saturday, time.Sunday}, time.UTC)
}

// NewRules builds the per-weekday table from a standard target, one short
// weekday and the non-working weekdays.
func NewRules(standard int, shortDay time.Weekday, shortMinutes int, nonWorking []time.Weekday, loc *time.Location) Rules {
	var r Rules
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		r.Targets[wd] = standard
	}
	r.Targets[shortDay] = shortMinutes
	for _, wd := range nonWorking {
		r.Targets[wd] = 0
	}
	r.Location = loc
	return r
}

// Validate rejects negative targets and a rule set with no working day.
func (r Rules) Validate() error {
	working := 0
	for wd, m := range r.Targets {
		if m < 0 {
			return &ValidationError{
				Field:   "targets",
				Message: fmt.Sprintf("%s target is negative (%d)", time.Weekday(wd), m),
				Err:     ErrInvalidRules,
			}
		}
		if m > 24*60 {
			return &ValidationError{
				Field:   "targets",
				Message: fmt.Sprintf("%s target exceeds a day (%d)", time.Weekday(wd), m),
				Err:     ErrInvalidRules,
			}
		}
		if m > 0 {
			working++
		}
	}
	if working == 0 {
		return &ValidationError{Field: "targets", Message: "no working weekday", Err: ErrInvalidRules}
	}
	return nil
}

// Loc returns the configured location, UTC when unset.
func (r Rules) Loc() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// IsWorkingWeekday reports whether the weekday has a non-zero target.
func (r Rules) IsWorkingWeekday(wd time.Weekday) bool { return r.Targets[wd] > 0 }

// RequiredMinutesFor returns the target of d under hs.
func (r Rules) RequiredMinutesFor(d Date, hs HolidaySet) int {
	return r.Day(d, hs).RequiredMinutes
}

// =============================================================================
// CALENDAR DAY - derived, never stored
// =============================================================================

// CalendarDay is the rule evaluation of one date.
// Invariant: RequiredMinutes == 0 whenever IsNonWorking.
type CalendarDay struct {
	Date            Date
	IsNonWorking    bool
	RequiredMinutes int
	Holiday         *Holiday
}

// Day evaluates the rules for d.
func (r Rules) Day(d Date, hs HolidaySet) CalendarDay {
	day := CalendarDay{Date: d}
	if h, ok := hs.HolidayOn(d); ok {
		day.Holiday = &h
		day.IsNonWorking = true
		return day
	}
	day.RequiredMinutes = r.Targets[d.Weekday()]
	day.IsNonWorking = day.RequiredMinutes == 0
	return day
}

// Days evaluates every date of p.
func (r Rules) Days(p Period, hs HolidaySet) []CalendarDay {
	dates := p.Days()
	out := make([]CalendarDay, 0, len(dates))
	for _, d := range dates {
		out = append(out, r.Day(d, hs))
	}
	return out
}

// RequiredMinutesIn sums the targets over p.
func (r Rules) RequiredMinutesIn(p Period, hs HolidaySet) int {
	total := 0
	for _, d := range p.Days() {
		total += r.RequiredMinutesFor(d, hs)
	}
	return total
}

// WorkingDaysIn counts days with a non-zero target in p.
func (r Rules) WorkingDaysIn(p Period, hs HolidaySet) int {
	n := 0
	for _, d := range p.Days() {
		if r.RequiredMinutesFor(d, hs) > 0 {
			n++
		}
	}
	return n
}
