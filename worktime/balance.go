/*
balance.go - Daily and monthly balance

PURPOSE:

	Computes the snapshot a user sees: worked today, required today, what
	remains, and the running balance of the accounting period (the calendar
	month). Recomputed from the full event log on every call; nothing is
	accumulated between calls.

KEY FORMULAS (all in whole minutes, per-day truncated):

	worked(d)    = WorkedMinutes(intervals, d)
	required(d)  = Rules.RequiredMinutesFor(d, holidays)
	prior        = sum over d in [periodStart, today) of worked(d) - required(d)
	monthly      = prior + worked(today) - required(today)

	The period starts on the first of today's month, or on PeriodStart when
	that is later, so the monthly balance resets to zero every month.
	Days with a zero requirement (weekends, holidays) contribute their
	worked minutes as a pure bonus.

BALANCE POLICIES:

	Both agree on the monthly figure. They only frame "today" differently.

	PolicyPlain (A):
	  daily     = worked(today) - required(today)
	  remaining = required(today) - worked(today)

	PolicyCarryAdjusted (B):
	  effective = required(today) - prior      (a prior deficit raises the bar)
	  daily     = worked(today) - effective
	  remaining = effective - worked(today)

	Remaining is signed: negative means the target has been exceeded.

EXAMPLE:

	Prior deficit of -60, nominal 510, policy B -> effective 570.

SEE ALSO:
  - cache.go: Optional completed-day cache (Calculator)
  - stats.go: Week and month summaries
*/
package worktime

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// BALANCE POLICY
// =============================================================================

type BalancePolicy int

const (
	PolicyPlain BalancePolicy = iota + 1
	PolicyCarryAdjusted
)

func (p BalancePolicy) String() string {
	switch p {
	case PolicyPlain:
		return "plain"
	case PolicyCarryAdjusted:
		return "carry_adjusted"
	default:
		return fmt.Sprintf("BalancePolicy(%d)", int(p))
	}
}

func ParseBalancePolicy(s string) (BalancePolicy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", "plain", "a":
		return PolicyPlain, nil
	case "carry_adjusted", "carry", "b":
		return PolicyCarryAdjusted, nil
	}
	return 0, &ValidationError{Field: "balance_policy", Message: fmt.Sprintf("unknown policy %q", s), Err: ErrInvalidRules}
}

func (p BalancePolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// BalanceInput is one consistent snapshot of everything the engine needs.
type BalanceInput struct {
	Events      []Event
	Sessions    []Session
	Holidays    HolidaySet
	Rules       Rules
	Policy      BalancePolicy
	PeriodStart Date // zero: first of the current month
	Now         time.Time
}

// BalanceSnapshot is the engine output. Never mutated after return.
type BalanceSnapshot struct {
	Date   Date          `json:"date"`
	Period Period        `json:"-"`
	Policy BalancePolicy `json:"policy"`

	WorkedTodayMinutes            int `json:"worked_today_minutes"`
	BreakTodayMinutes             int `json:"break_today_minutes"`
	RequiredTodayMinutes          int `json:"required_today_minutes"`
	EffectiveRequiredTodayMinutes int `json:"effective_required_today_minutes"`
	RemainingTodayMinutes         int `json:"remaining_today_minutes"`
	DailyBalanceMinutes           int `json:"daily_balance_minutes"`
	PriorBalanceMinutes           int `json:"prior_balance_minutes"`
	MonthlyBalanceMinutes         int `json:"monthly_balance_minutes"`

	// Sub-minute figures for a live display.
	WorkedTodaySeconds    int64 `json:"worked_today_seconds"`
	BreakTodaySeconds     int64 `json:"break_today_seconds"`
	MonthlyBalanceSeconds int64 `json:"monthly_balance_seconds"`

	Working     bool         `json:"working"`
	OnBreak     bool         `json:"on_break"`
	Holiday     *Holiday     `json:"-"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
	ComputedAt  time.Time    `json:"computed_at"`
}

// ComputeBalance is the pure balance computation.
func ComputeBalance(in BalanceInput) BalanceSnapshot {
	return computeBalance(in, nil)
}

// dayLookup resolves the totals of a prior day. computed is what the
// current event log yields; complete reports that every interval starting
// on the day ended before today's local midnight.
type dayLookup func(d Date, computed DayTotals, complete bool) DayTotals

func computeBalance(in BalanceInput, lookup dayLookup) BalanceSnapshot {
	loc := in.Rules.Loc()
	policy := in.Policy
	if policy == 0 {
		policy = PolicyPlain
	}

	today := DateOf(in.Now, loc)
	month := MonthPeriod(today)
	start := month.Start
	if !in.PeriodStart.IsZero() && in.PeriodStart.After(start) {
		start = in.PeriodStart
	}

	rec := Reconstruct(in.Events, in.Now)
	intervals := MergeIntervals(rec.Intervals, SessionIntervals(in.Sessions))

	var totals map[Date]DayTotals
	var open map[Date]bool
	if start.BeforeOrEqual(today) {
		totals = DailyTotals(intervals, Period{Start: start, End: today}, loc, in.Now)
		open = unsettledDates(intervals, loc, today.Start(loc), in.Now)
	} else {
		totals = DailyTotals(intervals, DayPeriod(today), loc, in.Now)
	}

	prior := 0
	for d := start; d.Before(today); d = d.AddDays(1) {
		t := totals[d]
		if lookup != nil {
			t = lookup(d, t, !open[d])
		}
		prior += t.WorkedMinutes() - in.Rules.RequiredMinutesFor(d, in.Holidays)
	}

	day := in.Rules.Day(today, in.Holidays)
	t := totals[today]
	worked := t.WorkedMinutes()
	required := day.RequiredMinutes

	snap := BalanceSnapshot{
		Date:                  today,
		Period:                Period{Start: start, End: month.End},
		Policy:                policy,
		WorkedTodayMinutes:    worked,
		BreakTodayMinutes:     t.BreakMinutes(),
		RequiredTodayMinutes:  required,
		PriorBalanceMinutes:   prior,
		MonthlyBalanceMinutes: prior + worked - required,
		WorkedTodaySeconds:    t.WorkedSeconds,
		BreakTodaySeconds:     t.BreakSeconds,
		MonthlyBalanceSeconds: int64(prior-required)*60 + t.WorkedSeconds,
		Holiday:               day.Holiday,
		Diagnostics:           rec.Diagnostics,
		ComputedAt:            in.Now,
	}

	switch policy {
	case PolicyCarryAdjusted:
		snap.EffectiveRequiredTodayMinutes = required - prior
	default:
		snap.EffectiveRequiredTodayMinutes = required
	}
	snap.DailyBalanceMinutes = worked - snap.EffectiveRequiredTodayMinutes
	snap.RemainingTodayMinutes = snap.EffectiveRequiredTodayMinutes - worked

	for _, iv := range intervals {
		if iv.Open() {
			switch iv.Kind {
			case KindWork:
				snap.Working = true
			case KindBreak:
				snap.OnBreak = true
			}
		}
	}
	return snap
}
