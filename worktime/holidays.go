/*
holidays.go - Public and custom holidays

PURPOSE:

	Decides whether a date is a holiday for a subject. Two sources:

	PUBLIC:  computed per year from a PublicCalendar (fixed dates plus
	         Easter-anchored feasts). Immutable, but each one can be disabled
	         individually, which turns it back into a normal working day.
	         A public holiday's ID is its ISO date, e.g. "2026-05-01".

	CUSTOM:  declared by the user (bridge day, leave). Created and deleted
	         explicitly. Active on an exact date match.

MOVABLE FEASTS:

	Easter is computed with the anonymous Gregorian algorithm so the table
	stays correct across years without a data update.

SEE ALSO:
  - calendar.go: Uses HolidaySet to zero the daily target
*/
package worktime

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// HOLIDAY
// =============================================================================

type HolidayOrigin int

const (
	OriginPublic HolidayOrigin = iota + 1
	OriginCustom
)

func (o HolidayOrigin) String() string {
	switch o {
	case OriginPublic:
		return "public"
	case OriginCustom:
		return "custom"
	default:
		return fmt.Sprintf("HolidayOrigin(%d)", int(o))
	}
}

func (o HolidayOrigin) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

type Holiday struct {
	ID     string
	Date   Date
	Name   string
	Origin HolidayOrigin
}

// NewCustomHoliday validates a user-declared holiday. The date string is
// parsed here so that nothing unparsable reaches the engine.
func NewCustomHoliday(id, date, name string) (Holiday, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Holiday{}, &ValidationError{Field: "date", Message: err.Error(), Err: ErrInvalidHoliday}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Holiday{}, &ValidationError{Field: "name", Message: "name is required", Err: ErrInvalidHoliday}
	}
	if id == "" {
		return Holiday{}, &ValidationError{Field: "id", Message: "id is required", Err: ErrInvalidHoliday}
	}
	return Holiday{ID: id, Date: d, Name: name, Origin: OriginCustom}, nil
}

// =============================================================================
// PUBLIC CALENDARS
// =============================================================================

// PublicCalendar produces the public holidays of a year.
type PublicCalendar interface {
	Name() string
	Holidays(year int) []Holiday
}

// FrenchCalendar is the French public holiday table: eight fixed dates plus
// Easter Monday, Ascension Day and Whit Monday.
type FrenchCalendar struct{}

type fixedHoliday struct {
	month time.Month
	day   int
	name  string
}

var frenchFixed = []fixedHoliday{
	{time.January, 1, "New Year's Day"},
	{time.May, 1, "Labour Day"},
	{time.May, 8, "Victory Day"},
	{time.July, 14, "Bastille Day"},
	{time.August, 15, "Assumption"},
	{time.November, 1, "All Saints' Day"},
	{time.November, 11, "Armistice Day"},
	{time.December, 25, "Christmas Day"},
}

func (FrenchCalendar) Name() string { return "fr" }

func (FrenchCalendar) Holidays(year int) []Holiday {
	holidays := make([]Holiday, 0, len(frenchFixed)+3)
	for _, f := range frenchFixed {
		holidays = append(holidays, publicHoliday(NewDate(year, f.month, f.day), f.name))
	}
	easter := EasterSunday(year)
	holidays = append(holidays,
		publicHoliday(easter.AddDays(1), "Easter Monday"),
		publicHoliday(easter.AddDays(39), "Ascension Day"),
		publicHoliday(easter.AddDays(50), "Whit Monday"),
	)
	sort.Slice(holidays, func(i, j int) bool { return holidays[i].Date.Before(holidays[j].Date) })
	return holidays
}

// NoPublicHolidays is the empty calendar.
type NoPublicHolidays struct{}

func (NoPublicHolidays) Name() string           { return "none" }
func (NoPublicHolidays) Holidays(int) []Holiday { return nil }

func publicHoliday(d Date, name string) Holiday {
	return Holiday{ID: d.String(), Date: d, Name: name, Origin: OriginPublic}
}

// PublicCalendarByName resolves a configured region code.
func PublicCalendarByName(name string) (PublicCalendar, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fr", "france":
		return FrenchCalendar{}, nil
	case "", "none":
		return NoPublicHolidays{}, nil
	}
	return nil, &ValidationError{Field: "public_holidays", Message: fmt.Sprintf("unknown holiday calendar %q", name), Err: ErrInvalidRules}
}

// EasterSunday returns Western Easter for year (anonymous Gregorian computus).
func EasterSunday(year int) Date {
	g := year % 19
	c := year / 100
	h := (c - c/4 - (8*c+13)/25 + 19*g + 15) % 30
	i := h - (h/28)*(1-(29/(h+1))*((21-g)/11))
	j := (year + year/4 + i + 2 - c + c/4) % 7
	l := i - j
	month := 3 + (l+40)/44
	day := l + 28 - 31*(month/4)
	return NewDate(year, time.Month(month), day)
}

// =============================================================================
// HOLIDAY SET - immutable snapshot handed to the engine
// =============================================================================

// HolidaySet is one subject's holiday configuration at a point in time.
// The zero value has no holidays at all.
type HolidaySet struct {
	public   PublicCalendar
	custom   []Holiday
	disabled map[string]bool
}

// NewHolidaySet copies its inputs; later changes by the caller do not leak in.
func NewHolidaySet(public PublicCalendar, custom []Holiday, disabled []string) HolidaySet {
	hs := HolidaySet{
		public:   public,
		custom:   append([]Holiday(nil), custom...),
		disabled: make(map[string]bool, len(disabled)),
	}
	for _, id := range disabled {
		hs.disabled[id] = true
	}
	return hs
}

// IsDisabled reports whether a public holiday has been turned off.
func (hs HolidaySet) IsDisabled(id string) bool { return hs.disabled[id] }

// PublicHolidays returns every public holiday of year, disabled ones included.
func (hs HolidaySet) PublicHolidays(year int) []Holiday {
	if hs.public == nil {
		return nil
	}
	return hs.public.Holidays(year)
}

// HolidayOn returns the active holiday on d. Public holidays win over
// custom ones on the same date.
func (hs HolidaySet) HolidayOn(d Date) (Holiday, bool) {
	for _, h := range hs.PublicHolidays(d.Year) {
		if h.Date.Equal(d) && !hs.disabled[h.ID] {
			return h, true
		}
	}
	for _, h := range hs.custom {
		if h.Date.Equal(d) {
			return h, true
		}
	}
	return Holiday{}, false
}

// IsHoliday reports whether d is an active holiday.
func (hs HolidaySet) IsHoliday(d Date) bool {
	_, ok := hs.HolidayOn(d)
	return ok
}

// Active returns the active holidays of year, sorted by date.
func (hs HolidaySet) Active(year int) []Holiday {
	var out []Holiday
	for _, h := range hs.PublicHolidays(year) {
		if !hs.disabled[h.ID] {
			out = append(out, h)
		}
	}
	for _, h := range hs.custom {
		if h.Date.Year == year {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Custom returns a copy of the custom holidays.
func (hs HolidaySet) Custom() []Holiday {
	return append([]Holiday(nil), hs.custom...)
}
