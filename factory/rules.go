/*
Package factory provides JSON/YAML to Go rule-set conversion.

PURPOSE:

	Converts a rule-set definition (targets, short day, non-working days,
	holiday region, balance policy, time zone) into worktime.Rules and the
	values the engine is parameterized with. The same struct is used for the
	JSON API and for the "rules" section of the YAML config file.

WHY DECIMAL?

	Targets are usually written in hours ("8.5", "7.5"). They are converted
	once, exactly, to whole minutes with shopspring/decimal. A value that is
	not a whole number of minutes ("8.333") is rejected instead of being
	rounded, so no floating-point drift ever reaches the engine.

JSON SCHEMA:

	{
	  "standard_hours": "8.5",
	  "short_day": "friday",
	  "short_day_hours": "7.5",
	  "non_working_days": ["saturday", "sunday"],
	  "public_holidays": "fr",
	  "balance_policy": "plain",
	  "timezone": "Europe/Paris"
	}

	standard_minutes / short_day_minutes may be given instead of the hour
	fields; minutes win when both are present.

USAGE:

	f := factory.NewRulesFactory()
	rs, err := f.ParseRules(jsonString)
	snap := worktime.ComputeBalance(worktime.BalanceInput{Rules: rs.Rules, Policy: rs.Policy, ...})

SEE ALSO:
  - worktime/calendar.go: Rules type definition
  - config/config.go: Loads the same struct from YAML
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/worktime/worktime"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RulesJSON is the serialized form of a rule set.
type RulesJSON struct {
	StandardHours   string   `json:"standard_hours,omitempty" yaml:"standard_hours,omitempty" mapstructure:"standard_hours"`
	StandardMinutes *int     `json:"standard_minutes,omitempty" yaml:"standard_minutes,omitempty" mapstructure:"standard_minutes"`
	ShortDay        string   `json:"short_day,omitempty" yaml:"short_day,omitempty" mapstructure:"short_day"`
	ShortDayHours   string   `json:"short_day_hours,omitempty" yaml:"short_day_hours,omitempty" mapstructure:"short_day_hours"`
	ShortDayMinutes *int     `json:"short_day_minutes,omitempty" yaml:"short_day_minutes,omitempty" mapstructure:"short_day_minutes"`
	NonWorkingDays  []string `json:"non_working_days,omitempty" yaml:"non_working_days,omitempty" mapstructure:"non_working_days"`
	PublicHolidays  string   `json:"public_holidays,omitempty" yaml:"public_holidays,omitempty" mapstructure:"public_holidays"`
	BalancePolicy   string   `json:"balance_policy,omitempty" yaml:"balance_policy,omitempty" mapstructure:"balance_policy"`
	Timezone        string   `json:"timezone,omitempty" yaml:"timezone,omitempty" mapstructure:"timezone"`
}

// DefaultRulesJSON mirrors worktime.DefaultRules with French public holidays.
func DefaultRulesJSON() RulesJSON {
	return RulesJSON{
		StandardHours:  "8.5",
		ShortDay:       "friday",
		ShortDayHours:  "7.5",
		NonWorkingDays: []string{"saturday", "sunday"},
		PublicHolidays: "fr",
		BalancePolicy:  worktime.PolicyPlain.String(),
		Timezone:       "UTC",
	}
}

// RuleSet is everything a rule definition resolves to.
type RuleSet struct {
	Rules    worktime.Rules
	Policy   worktime.BalancePolicy
	Calendar worktime.PublicCalendar
}

// =============================================================================
// FACTORY
// =============================================================================

// RulesFactory converts RulesJSON to a RuleSet.
type RulesFactory struct {
	// LoadLocation resolves time zone names. Defaults to time.LoadLocation.
	LoadLocation func(name string) (*time.Location, error)
}

func NewRulesFactory() *RulesFactory {
	return &RulesFactory{LoadLocation: time.LoadLocation}
}

// ParseRules parses a JSON string into a RuleSet.
func (f *RulesFactory) ParseRules(jsonStr string) (RuleSet, error) {
	var rj RulesJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse rules JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// FromJSON converts RulesJSON to a RuleSet. Missing fields take the defaults.
func (f *RulesFactory) FromJSON(rj RulesJSON) (RuleSet, error) {
	standard, err := minutesField("standard", rj.StandardMinutes, rj.StandardHours, worktime.DefaultStandardMinutes)
	if err != nil {
		return RuleSet{}, err
	}
	short, err := minutesField("short_day", rj.ShortDayMinutes, rj.ShortDayHours, worktime.DefaultShortDayMinutes)
	if err != nil {
		return RuleSet{}, err
	}

	shortDay := time.Friday
	if rj.ShortDay != "" {
		if shortDay, err = parseWeekday(rj.ShortDay); err != nil {
			return RuleSet{}, err
		}
	}

	nonWorking := []time.Weekday{time.Saturday, time.Sunday}
	if rj.NonWorkingDays != nil {
		nonWorking = nonWorking[:0]
		for _, s := range rj.NonWorkingDays {
			wd, err := parseWeekday(s)
			if err != nil {
				return RuleSet{}, err
			}
			nonWorking = append(nonWorking, wd)
		}
	}

	loc := time.UTC
	if rj.Timezone != "" {
		load := f.LoadLocation
		if load == nil {
			load = time.LoadLocation
		}
		if loc, err = load(rj.Timezone); err != nil {
			return RuleSet{}, &worktime.ValidationError{Field: "timezone", Message: err.Error(), Err: worktime.ErrInvalidRules}
		}
	}

	calendar, err := worktime.PublicCalendarByName(rj.PublicHolidays)
	if err != nil {
		return RuleSet{}, err
	}
	policy, err := worktime.ParseBalancePolicy(rj.BalancePolicy)
	if err != nil {
		return RuleSet{}, err
	}

	rules := worktime.NewRules(standard, shortDay, short, nonWorking, loc)
	if err := rules.Validate(); err != nil {
		return RuleSet{}, err
	}

	return RuleSet{Rules: rules, Policy: policy, Calendar: calendar}, nil
}

// ToJSON renders a RuleSet back, with targets in decimal hours.
func (f *RulesFactory) ToJSON(rs RuleSet) RulesJSON {
	rj := RulesJSON{
		BalancePolicy: rs.Policy.String(),
		Timezone:      rs.Rules.Loc().String(),
	}
	if rs.Calendar != nil {
		rj.PublicHolidays = rs.Calendar.Name()
	}

	// The standard target is the most common non-zero weekday target;
	// any other non-zero target is the short day.
	counts := make(map[int]int)
	for _, m := range rs.Rules.Targets {
		if m > 0 {
			counts[m]++
		}
	}
	standard := 0
	for m, n := range counts {
		if n > counts[standard] || (n == counts[standard] && m > standard) {
			standard = m
		}
	}
	rj.StandardHours = MinutesToHours(standard).String()

	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		m := rs.Rules.Targets[wd]
		switch {
		case m == 0:
			rj.NonWorkingDays = append(rj.NonWorkingDays, strings.ToLower(wd.String()))
		case m != standard && rj.ShortDay == "":
			rj.ShortDay = strings.ToLower(wd.String())
			rj.ShortDayHours = MinutesToHours(m).String()
		}
	}
	return rj
}

// =============================================================================
// HELPERS
// =============================================================================

// HoursToMinutes converts decimal hours to whole minutes, exactly.
func HoursToMinutes(hours string) (int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(hours))
	if err != nil {
		return 0, fmt.Errorf("%q is not a number: %w", hours, err)
	}
	m := d.Mul(decimal.NewFromInt(60))
	if !m.IsInteger() {
		return 0, fmt.Errorf("%s hours is not a whole number of minutes", hours)
	}
	return int(m.IntPart()), nil
}

// MinutesToHours is the exact inverse of HoursToMinutes for display.
func MinutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))
}

// FormatHours renders minutes as fixed two-decimal hours ("-1.25").
func FormatHours(minutes int) string {
	return MinutesToHours(minutes).StringFixed(2)
}

func minutesField(field string, minutes *int, hours string, fallback int) (int, error) {
	switch {
	case minutes != nil:
		return *minutes, nil
	case hours != "":
		m, err := HoursToMinutes(hours)
		if err != nil {
			return 0, &worktime.ValidationError{Field: field, Message: err.Error(), Err: worktime.ErrInvalidRules}
		}
		return m, nil
	default:
		return fallback, nil
	}
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	if wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]; ok {
		return wd, nil
	}
	return 0, &worktime.ValidationError{Field: "weekday", Message: fmt.Sprintf("unknown weekday %q", s), Err: worktime.ErrInvalidRules}
}
