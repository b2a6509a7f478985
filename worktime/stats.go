package worktime

import "time"

// =============================================================================
// DAY / WEEK / MONTH SUMMARIES
// =============================================================================

// DaySummary is one row of a week or month view.
type DaySummary struct {
	Date            Date
	WorkedSeconds   int64
	BreakSeconds    int64
	WorkedMinutes   int
	BreakMinutes    int
	RequiredMinutes int
	BalanceMinutes  int
	IsNonWorking    bool
	Holiday         *Holiday
	IsToday         bool
	IsFuture        bool
}

// SummarizeDays builds one DaySummary per date of p.
func SummarizeDays(intervals []Interval, p Period, rules Rules, hs HolidaySet, now time.Time) []DaySummary {
	loc := rules.Loc()
	today := DateOf(now, loc)
	totals := DailyTotals(intervals, p, loc, now)

	days := make([]DaySummary, 0, DaysBetween(p.Start, p.End)+1)
	for _, cd := range rules.Days(p, hs) {
		t := totals[cd.Date]
		days = append(days, DaySummary{
			Date:            cd.Date,
			WorkedSeconds:   t.WorkedSeconds,
			BreakSeconds:    t.BreakSeconds,
			WorkedMinutes:   t.WorkedMinutes(),
			BreakMinutes:    t.BreakMinutes(),
			RequiredMinutes: cd.RequiredMinutes,
			BalanceMinutes:  t.WorkedMinutes() - cd.RequiredMinutes,
			IsNonWorking:    cd.IsNonWorking,
			Holiday:         cd.Holiday,
			IsToday:         cd.Date.Equal(today),
			IsFuture:        cd.Date.After(today),
		})
	}
	return days
}

// Achievements are the weekly badges.
type Achievements struct {
	// EarlyBird: today's first start is before 09:00 local time.
	EarlyBird bool `json:"early_bird"`
	// Consistency: three or more consecutive days meeting a non-zero target.
	Consistency bool `json:"consistency"`
	// FocusMaster: more than an hour worked and breaks under 10% of it.
	FocusMaster bool `json:"focus_master"`
	// LongestStreak is the run length behind Consistency.
	LongestStreak int `json:"longest_streak"`
}

const (
	earlyBirdHour     = 9
	consistencyStreak = 3
	focusMinWorked    = 60
)

// WeekSummary is the Monday-start weekly analytics view.
type WeekSummary struct {
	Week            Period
	Days            []DaySummary
	WorkedMinutes   int
	BreakMinutes    int
	RequiredMinutes int
	BalanceMinutes  int
	DaysWorked      int

	// AverageWorkedMinutes is WorkedMinutes / DaysWorked, truncated.
	AverageWorkedMinutes int

	// MostProductive / LeastProductive are nil when nothing was worked.
	MostProductive  *Date
	LeastProductive *Date

	WorkPercent  float64
	BreakPercent float64

	Achievements Achievements
}

// SummarizeWeek computes the analytics of the week containing d.
func SummarizeWeek(intervals []Interval, d Date, rules Rules, hs HolidaySet, now time.Time) WeekSummary {
	week := WeekPeriod(d)
	ws := WeekSummary{Week: week, Days: SummarizeDays(intervals, week, rules, hs, now)}

	var most, least *DaySummary
	streak := 0
	for i := range ws.Days {
		day := &ws.Days[i]
		ws.WorkedMinutes += day.WorkedMinutes
		ws.BreakMinutes += day.BreakMinutes
		ws.RequiredMinutes += day.RequiredMinutes
		if day.WorkedMinutes > 0 {
			ws.DaysWorked++
			if most == nil || day.WorkedMinutes > most.WorkedMinutes {
				most = day
			}
			if least == nil || day.WorkedMinutes <= least.WorkedMinutes {
				least = day
			}
		}

		if day.RequiredMinutes > 0 && day.WorkedMinutes >= day.RequiredMinutes {
			streak++
		} else {
			streak = 0
		}
		if streak > ws.Achievements.LongestStreak {
			ws.Achievements.LongestStreak = streak
		}
	}
	ws.BalanceMinutes = ws.WorkedMinutes - ws.RequiredMinutes

	if ws.DaysWorked > 0 {
		ws.AverageWorkedMinutes = ws.WorkedMinutes / ws.DaysWorked
	}
	if most != nil {
		m, l := most.Date, least.Date
		ws.MostProductive, ws.LeastProductive = &m, &l
	}
	if total := ws.WorkedMinutes + ws.BreakMinutes; total > 0 {
		ws.WorkPercent = float64(ws.WorkedMinutes) * 100 / float64(total)
		ws.BreakPercent = float64(ws.BreakMinutes) * 100 / float64(total)
	}

	loc := rules.Loc()
	if first, ok := FirstStart(intervals, DateOf(now, loc), loc); ok {
		ws.Achievements.EarlyBird = first.In(loc).Hour() < earlyBirdHour
	}
	ws.Achievements.Consistency = ws.Achievements.LongestStreak >= consistencyStreak
	ws.Achievements.FocusMaster = ws.WorkedMinutes > focusMinWorked && ws.BreakMinutes*10 < ws.WorkedMinutes

	return ws
}

// MonthSummary is the calendar-month view.
type MonthSummary struct {
	Month Period
	Days  []DaySummary

	WorkedMinutes int
	BreakMinutes  int

	// RequiredMinutes covers the full month; RequiredToDateMinutes stops
	// at today (inclusive).
	RequiredMinutes       int
	RequiredToDateMinutes int

	// BalanceMinutes = WorkedMinutes - RequiredMinutes (full month).
	BalanceMinutes int
	// BalanceToDateMinutes = WorkedMinutes - RequiredToDateMinutes.
	BalanceToDateMinutes int

	WorkingDays       int
	PassedWorkingDays int
}

// SummarizeMonth computes the view of the month containing d.
func SummarizeMonth(intervals []Interval, d Date, rules Rules, hs HolidaySet, now time.Time) MonthSummary {
	month := MonthPeriod(d)
	ms := MonthSummary{Month: month, Days: SummarizeDays(intervals, month, rules, hs, now)}
	for _, day := range ms.Days {
		ms.WorkedMinutes += day.WorkedMinutes
		ms.BreakMinutes += day.BreakMinutes
		ms.RequiredMinutes += day.RequiredMinutes
		if day.RequiredMinutes > 0 {
			ms.WorkingDays++
		}
		if !day.IsFuture {
			ms.RequiredToDateMinutes += day.RequiredMinutes
			if day.RequiredMinutes > 0 {
				ms.PassedWorkingDays++
			}
		}
	}
	ms.BalanceMinutes = ms.WorkedMinutes - ms.RequiredMinutes
	ms.BalanceToDateMinutes = ms.WorkedMinutes - ms.RequiredToDateMinutes
	return ms
}
