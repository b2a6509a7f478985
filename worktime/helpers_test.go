package worktime_test

import (
	"fmt"
	"time"

	"github.com/warp/worktime/worktime"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// at builds a UTC instant from "2006-01-02" and a wall-clock time.
func at(date string, hour, min int) time.Time {
	d := worktime.MustParseDate(date)
	return time.Date(d.Year, d.Month, d.Day, hour, min, 0, 0, time.UTC)
}

type eventLog struct {
	events []worktime.Event
}

func (l *eventLog) add(typ worktime.EventType, when time.Time, reason worktime.Reason) *eventLog {
	n := len(l.events) + 1
	l.events = append(l.events, worktime.Event{
		ID:      worktime.EventID(fmt.Sprintf("ev-%03d", n)),
		Subject: "alice",
		Type:    typ,
		At:      when,
		Reason:  reason,
		Seq:     int64(n),
	})
	return l
}

func (l *eventLog) start(when time.Time) *eventLog {
	return l.add(worktime.SessionStart, when, worktime.ReasonNone)
}

func (l *eventLog) end(when time.Time, reason worktime.Reason) *eventLog {
	return l.add(worktime.SessionEnd, when, reason)
}

// workDay logs a plain START/END(eod) pair.
func (l *eventLog) workDay(date string, fromH, fromM, toH, toM int) *eventLog {
	return l.start(at(date, fromH, fromM)).end(at(date, toH, toM), worktime.ReasonEndOfDay)
}

func noHolidays() worktime.HolidaySet {
	return worktime.NewHolidaySet(worktime.NoPublicHolidays{}, nil, nil)
}

func input(events []worktime.Event, now time.Time) worktime.BalanceInput {
	return worktime.BalanceInput{
		Events:   events,
		Holidays: noHolidays(),
		Rules:    worktime.DefaultRules(),
		Policy:   worktime.PolicyPlain,
		Now:      now,
	}
}
