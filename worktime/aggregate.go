package worktime

import "time"

// =============================================================================
// DURATION AGGREGATOR
// =============================================================================
//
// An interval is attributed to the local date of its start. Open intervals
// contribute now - start, clamped at zero. Seconds are the canonical unit;
// minutes are truncated toward zero at the boundary.

// WorkedSeconds sums WORK intervals starting inside p.
func WorkedSeconds(intervals []Interval, p Period, loc *time.Location, now time.Time) int64 {
	return sumSeconds(intervals, KindWork, p, loc, now)
}

// BreakSeconds sums BREAK intervals starting inside p.
func BreakSeconds(intervals []Interval, p Period, loc *time.Location, now time.Time) int64 {
	return sumSeconds(intervals, KindBreak, p, loc, now)
}

func WorkedMinutes(intervals []Interval, p Period, loc *time.Location, now time.Time) int {
	return int(WorkedSeconds(intervals, p, loc, now) / 60)
}

func BreakMinutes(intervals []Interval, p Period, loc *time.Location, now time.Time) int {
	return int(BreakSeconds(intervals, p, loc, now) / 60)
}

func sumSeconds(intervals []Interval, kind IntervalKind, p Period, loc *time.Location, now time.Time) int64 {
	var total time.Duration
	for _, iv := range intervals {
		if iv.Kind != kind || !p.Contains(DateOf(iv.Start, loc)) {
			continue
		}
		total += iv.Duration(now)
	}
	return int64(total / time.Second)
}

// DayTotals is the worked and break time attributed to one date.
type DayTotals struct {
	WorkedSeconds int64
	BreakSeconds  int64
}

func (t DayTotals) WorkedMinutes() int { return int(t.WorkedSeconds / 60) }
func (t DayTotals) BreakMinutes() int  { return int(t.BreakSeconds / 60) }

// DailyTotals groups the intervals starting inside p by local date in a
// single pass. Dates with no interval are absent from the map. Durations
// are summed exactly and truncated to seconds once per day.
func DailyTotals(intervals []Interval, p Period, loc *time.Location, now time.Time) map[Date]DayTotals {
	type acc struct{ worked, brk time.Duration }
	sums := make(map[Date]*acc)
	for _, iv := range intervals {
		d := DateOf(iv.Start, loc)
		if !p.Contains(d) {
			continue
		}
		a := sums[d]
		if a == nil {
			a = &acc{}
			sums[d] = a
		}
		switch iv.Kind {
		case KindWork:
			a.worked += iv.Duration(now)
		case KindBreak:
			a.brk += iv.Duration(now)
		}
	}
	out := make(map[Date]DayTotals, len(sums))
	for d, a := range sums {
		out[d] = DayTotals{
			WorkedSeconds: int64(a.worked / time.Second),
			BreakSeconds:  int64(a.brk / time.Second),
		}
	}
	return out
}

// unsettledDates returns the local dates on which an interval starts that
// is still open or ends at or after cutoff. A later event can still re-pair
// such an interval.
func unsettledDates(intervals []Interval, loc *time.Location, cutoff, now time.Time) map[Date]bool {
	out := make(map[Date]bool)
	for _, iv := range intervals {
		if iv.Open() || !iv.Start.Add(iv.Duration(now)).Before(cutoff) {
			out[DateOf(iv.Start, loc)] = true
		}
	}
	return out
}

// FirstStart returns the earliest WORK start on d.
func FirstStart(intervals []Interval, d Date, loc *time.Location) (time.Time, bool) {
	var first time.Time
	found := false
	for _, iv := range intervals {
		if iv.Kind != KindWork || !DateOf(iv.Start, loc).Equal(d) {
			continue
		}
		if !found || iv.Start.Before(first) {
			first, found = iv.Start, true
		}
	}
	return first, found
}
