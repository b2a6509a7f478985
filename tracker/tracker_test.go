package tracker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/factory"
	"github.com/warp/worktime/worktime"
	"github.com/warp/worktime/worktime/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func at(date string, hour, min int) time.Time {
	d := worktime.MustParseDate(date)
	return time.Date(d.Year, d.Month, d.Day, hour, min, 0, 0, time.UTC)
}

type fixture struct {
	svc   *Service
	store *store.Memory
	clock *worktime.FixedClock
	cache *worktime.DayCache
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	cache, err := worktime.NewDayCache(128)
	require.NoError(t, err)

	mem := store.NewMemory()
	clock := worktime.NewFixedClock(now)
	n := 0
	svc := New(mem, Config{
		RuleSet: factory.RuleSet{
			Rules:    worktime.DefaultRules(),
			Policy:   worktime.PolicyPlain,
			Calendar: worktime.FrenchCalendar{},
		},
		Cache:  cache,
		Clock:  clock,
		Logger: zerolog.Nop(),
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		},
	})
	return &fixture{svc: svc, store: mem, clock: clock, cache: cache}
}

func (f *fixture) record(t *testing.T, typ worktime.EventType, when time.Time, reason worktime.Reason) RecordResult {
	t.Helper()
	res, err := f.svc.RecordEvent(context.Background(), "alice", RecordRequest{Type: typ, Reason: reason, At: &when})
	require.NoError(t, err)
	return res
}

func (f *fixture) workDay(t *testing.T, date string, fromH, toH int) {
	t.Helper()
	f.record(t, worktime.SessionStart, at(date, fromH, 0), worktime.ReasonNone)
	f.record(t, worktime.SessionEnd, at(date, toH, 0), worktime.ReasonEndOfDay)
}

// =============================================================================
// BALANCE
// =============================================================================

func TestService_BalanceFromRecordedEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-03-02", 17, 30))

	// GIVEN: Monday with a lunch break
	f.record(t, worktime.SessionStart, at("2026-03-02", 9, 0), worktime.ReasonNone)
	f.record(t, worktime.SessionEnd, at("2026-03-02", 12, 0), worktime.ReasonLunch)
	f.record(t, worktime.SessionStart, at("2026-03-02", 13, 0), worktime.ReasonNone)

	// WHEN
	snap, err := f.svc.Balance(ctx, "alice", f.svc.Now())
	require.NoError(t, err)

	// THEN: 3h + 4h30 still running
	assert.Equal(t, 450, snap.WorkedTodayMinutes)
	assert.Equal(t, 60, snap.BreakTodayMinutes)
	assert.Equal(t, 510, snap.RequiredTodayMinutes)
	assert.Equal(t, -60, snap.DailyBalanceMinutes)
	assert.True(t, snap.Working)
	assert.Empty(t, snap.Diagnostics)
}

func TestService_RecordEventDefaultsToNow(t *testing.T) {
	f := newFixture(t, at("2026-03-02", 9, 15))

	res, err := f.svc.RecordEvent(context.Background(), "alice", RecordRequest{Type: worktime.SessionStart})
	require.NoError(t, err)

	assert.True(t, res.Event.At.Equal(at("2026-03-02", 9, 15)))
	assert.Equal(t, worktime.EventID("id-001"), res.Event.ID)
	assert.NotZero(t, res.Event.Seq)
}

func TestService_RecordEventRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-03-02", 9, 0))

	_, err := f.svc.RecordEvent(ctx, "alice", RecordRequest{Type: worktime.SessionStart, Reason: worktime.ReasonLunch})
	assert.ErrorIs(t, err, worktime.ErrInvalidEvent)

	_, err = f.svc.RecordEvent(ctx, "", RecordRequest{Type: worktime.SessionStart})
	assert.ErrorIs(t, err, worktime.ErrInvalidEvent)

	_, err = f.svc.RecordEvent(ctx, "alice", RecordRequest{})
	assert.ErrorIs(t, err, worktime.ErrInvalidEvent)

	events, err := f.svc.Events(ctx, "alice", worktime.DayPeriod(worktime.MustParseDate("2026-03-02")))
	require.NoError(t, err)
	assert.Empty(t, events, "nothing stored")
}

func TestService_RecordEventReportsRepairs(t *testing.T) {
	f := newFixture(t, at("2026-03-02", 11, 0))

	// GIVEN: A start, then a second start while working
	f.record(t, worktime.SessionStart, at("2026-03-02", 9, 0), worktime.ReasonNone)
	res := f.record(t, worktime.SessionStart, at("2026-03-02", 10, 0), worktime.ReasonNone)

	// THEN: The second start is reported, and still stored
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, worktime.DiagDoubleStart, res.Diagnostics[0].Code)
	assert.Equal(t, res.Event.ID, res.Diagnostics[0].EventID)

	// AND: Only the later start counts
	snap, err := f.svc.Balance(context.Background(), "alice", f.svc.Now())
	require.NoError(t, err)
	assert.Equal(t, 60, snap.WorkedTodayMinutes)
	require.Len(t, snap.Diagnostics, 1)
}

func TestService_BackdatedEventInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-03-04", 10, 0))

	// GIVEN: Two 9h days, each 30 min over target
	f.workDay(t, "2026-03-02", 8, 17)
	f.workDay(t, "2026-03-03", 8, 17)
	snap, err := f.svc.Balance(ctx, "alice", f.svc.Now())
	require.NoError(t, err)
	require.Equal(t, 60, snap.PriorBalanceMinutes)
	require.Equal(t, 3, f.cache.Len(), "Sunday, Monday and Tuesday are complete")

	// WHEN: An evening session is added to Tuesday after the fact
	f.record(t, worktime.SessionStart, at("2026-03-03", 18, 0), worktime.ReasonNone)
	f.record(t, worktime.SessionEnd, at("2026-03-03", 19, 0), worktime.ReasonEndOfDay)

	// THEN: The balance sees it
	snap, err = f.svc.Balance(ctx, "alice", f.svc.Now())
	require.NoError(t, err)
	assert.Equal(t, 120, snap.PriorBalanceMinutes)
}

func TestService_SameDayEarlierStartRepairsOlderDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-03-05", 12, 0))

	// GIVEN: A Monday clock-in closed only on Thursday morning
	f.record(t, worktime.SessionStart, at("2026-03-02", 8, 0), worktime.ReasonNone)
	f.record(t, worktime.SessionEnd, at("2026-03-05", 10, 0), worktime.ReasonEndOfDay)
	_, err := f.svc.Balance(ctx, "alice", f.svc.Now())
	require.NoError(t, err)

	// WHEN: The forgotten Thursday START is recorded after the fact
	f.record(t, worktime.SessionStart, at("2026-03-05", 8, 0), worktime.ReasonNone)

	// THEN: The Monday session is discarded as a double start
	snap, err := f.svc.Balance(ctx, "alice", f.svc.Now())
	require.NoError(t, err)

	events, err := f.store.LoadEvents(ctx, "alice", time.Time{}, time.Time{})
	require.NoError(t, err)
	hs, err := f.svc.HolidaySet(ctx, "alice")
	require.NoError(t, err)
	fresh := worktime.ComputeBalance(worktime.BalanceInput{
		Events:   events,
		Holidays: hs,
		Rules:    worktime.DefaultRules(),
		Policy:   worktime.PolicyPlain,
		Now:      f.svc.Now(),
	})

	assert.Equal(t, -1530, fresh.PriorBalanceMinutes)
	assert.Equal(t, fresh.PriorBalanceMinutes, snap.PriorBalanceMinutes)
	assert.Equal(t, fresh.MonthlyBalanceMinutes, snap.MonthlyBalanceMinutes)
	assert.Equal(t, 120, snap.WorkedTodayMinutes)
}

func TestService_OutOfOrderEventDropsSubjectCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-03-04", 16, 0))

	// GIVEN: Cached complete days and a session closed this afternoon
	f.workDay(t, "2026-03-02", 8, 17)
	f.record(t, worktime.SessionStart, at("2026-03-04", 9, 0), worktime.ReasonNone)
	f.record(t, worktime.SessionEnd, at("2026-03-04", 15, 0), worktime.ReasonEndOfDay)
	_, err := f.svc.Balance(ctx, "alice", f.svc.Now())
	require.NoError(t, err)
	require.Positive(t, f.cache.Len())

	// WHEN: An event earlier than the latest one lands today
	f.record(t, worktime.SessionEnd, at("2026-03-04", 12, 0), worktime.ReasonLunch)

	// THEN: Nothing of the subject stays cached
	assert.Equal(t, 0, f.cache.Len())
}

func TestService_BalanceSeesSessionOpenedBeforeMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-03-02", 10, 0))

	// GIVEN: A START on Friday February 27 that was never closed
	f.record(t, worktime.SessionStart, at("2026-02-27", 9, 0), worktime.ReasonNone)

	// WHEN: Balance is asked on Monday March 2
	snap, err := f.svc.Balance(ctx, "alice", f.svc.Now())
	require.NoError(t, err)

	// THEN: The subject is still working, on February's account
	assert.True(t, snap.Working)
	assert.Equal(t, 0, snap.WorkedTodayMinutes)

	// AND: Closing it is not reported as a dangling end
	res := f.record(t, worktime.SessionEnd, at("2026-03-02", 11, 0), worktime.ReasonEndOfDay)
	assert.Empty(t, res.Diagnostics)

	snap, err = f.svc.Balance(ctx, "alice", at("2026-03-02", 12, 0))
	require.NoError(t, err)
	assert.False(t, snap.Working)
	assert.Empty(t, snap.Diagnostics)
}

func TestService_BalanceIgnoresClosedSessionBeforeMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-03-02", 10, 0))

	// GIVEN: February ended with a lunch break followed by a clock-out
	f.record(t, worktime.SessionStart, at("2026-02-25", 9, 0), worktime.ReasonNone)
	f.record(t, worktime.SessionEnd, at("2026-02-25", 12, 0), worktime.ReasonLunch)
	f.record(t, worktime.SessionStart, at("2026-02-25", 13, 0), worktime.ReasonNone)
	f.record(t, worktime.SessionEnd, at("2026-02-25", 17, 0), worktime.ReasonEndOfDay)

	// WHEN
	snap, err := f.svc.Balance(ctx, "alice", f.svc.Now())
	require.NoError(t, err)

	// THEN: Nothing carries over
	assert.False(t, snap.Working)
	assert.False(t, snap.OnBreak)
	assert.Empty(t, snap.Diagnostics)
}

func TestService_DeleteEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-03-04", 10, 0))
	f.workDay(t, "2026-03-02", 8, 17)

	_, err := f.svc.Balance(ctx, "alice", f.svc.Now())
	require.NoError(t, err)

	_, err = f.svc.DeleteEvent(ctx, "alice", "nope")
	assert.ErrorIs(t, err, worktime.ErrEventNotFound)

	// WHEN: The Monday end is deleted, leaving an open start
	deleted, err := f.svc.DeleteEvent(ctx, "alice", "id-002")
	require.NoError(t, err)
	assert.Equal(t, worktime.SessionEnd, deleted.Type)
	assert.Zero(t, f.cache.Len())

	// THEN: Monday is now open and counted until now
	snap, err := f.svc.Balance(ctx, "alice", f.svc.Now())
	require.NoError(t, err)
	assert.True(t, snap.Working)
}

// =============================================================================
// SUMMARIES
// =============================================================================

func TestService_WeekAndMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-03-04", 12, 0))
	f.workDay(t, "2026-03-02", 8, 17)
	f.workDay(t, "2026-03-03", 8, 16)

	ws, err := f.svc.Week(ctx, "alice", worktime.MustParseDate("2026-03-04"), f.svc.Now())
	require.NoError(t, err)
	assert.Equal(t, 540+480, ws.WorkedMinutes)
	assert.Equal(t, 2, ws.DaysWorked)

	ms, err := f.svc.Month(ctx, "alice", worktime.MustParseDate("2026-03-04"), f.svc.Now())
	require.NoError(t, err)
	assert.Equal(t, 540+480, ms.WorkedMinutes)

	snap, err := f.svc.Balance(ctx, "alice", f.svc.Now())
	require.NoError(t, err)
	assert.Equal(t, snap.MonthlyBalanceMinutes, ms.BalanceToDateMinutes)

	days, err := f.svc.Days(ctx, "alice", worktime.WeekPeriod(worktime.MustParseDate("2026-03-04")), f.svc.Now())
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, 30, days[0].BalanceMinutes)
}

func TestService_SessionAcrossMidnightPairs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-03-04", 9, 0))

	// GIVEN: A night shift from Monday 22:00 to Tuesday 02:00
	f.record(t, worktime.SessionStart, at("2026-03-02", 22, 0), worktime.ReasonNone)
	f.record(t, worktime.SessionEnd, at("2026-03-03", 2, 0), worktime.ReasonEndOfDay)

	// WHEN: Only Monday is summarized
	days, err := f.svc.Days(ctx, "alice", worktime.DayPeriod(worktime.MustParseDate("2026-03-02")), f.svc.Now())
	require.NoError(t, err)

	// THEN: The whole shift belongs to Monday
	require.Len(t, days, 1)
	assert.Equal(t, 240, days[0].WorkedMinutes)

	// AND: Tuesday alone reports no dangling end
	rec, err := f.svc.Intervals(ctx, "alice", worktime.DayPeriod(worktime.MustParseDate("2026-03-03")), f.svc.Now())
	require.NoError(t, err)
	assert.Empty(t, rec.Diagnostics)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestService_Holidays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-04-30", 12, 0))

	// GIVEN: A custom bridge day and Labour Day disabled
	h, err := f.svc.AddHoliday(ctx, "alice", "2026-05-15", "Bridge day")
	require.NoError(t, err)
	assert.Equal(t, worktime.OriginCustom, h.Origin)
	require.NoError(t, f.svc.SetPublicHolidayEnabled(ctx, "alice", "2026-05-01", false))

	// WHEN
	views, err := f.svc.Holidays(ctx, "alice", 2026)
	require.NoError(t, err)

	// THEN: 11 public + 1 custom, sorted, Labour Day flagged
	require.Len(t, views, 12)
	for i := 1; i < len(views); i++ {
		assert.False(t, views[i].Date.Before(views[i-1].Date))
	}
	var labour *HolidayView
	for i := range views {
		if views[i].ID == "2026-05-01" {
			labour = &views[i]
		}
	}
	require.NotNil(t, labour)
	assert.True(t, labour.Disabled)

	// AND: The engine sees both changes
	hs, err := f.svc.HolidaySet(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, hs.IsHoliday(worktime.MustParseDate("2026-05-01")))
	assert.True(t, hs.IsHoliday(worktime.MustParseDate("2026-05-15")))

	// Re-enable
	require.NoError(t, f.svc.SetPublicHolidayEnabled(ctx, "alice", "2026-05-01", true))
	hs, err = f.svc.HolidaySet(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, hs.IsHoliday(worktime.MustParseDate("2026-05-01")))

	require.NoError(t, f.svc.DeleteHoliday(ctx, "alice", h.ID))
	assert.ErrorIs(t, f.svc.DeleteHoliday(ctx, "alice", h.ID), worktime.ErrHolidayNotFound)
}

func TestService_HolidayBoundaryValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-04-30", 12, 0))

	_, err := f.svc.AddHoliday(ctx, "alice", "2026-13-01", "Nope")
	assert.ErrorIs(t, err, worktime.ErrInvalidHoliday)

	err = f.svc.SetPublicHolidayEnabled(ctx, "alice", "2026-05-02", false)
	assert.ErrorIs(t, err, worktime.ErrHolidayNotFound)

	err = f.svc.SetPublicHolidayEnabled(ctx, "alice", "labour-day", false)
	assert.ErrorIs(t, err, worktime.ErrHolidayNotFound)
}

// =============================================================================
// PERIOD CLOSE
// =============================================================================

func TestService_CloseMonth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, at("2026-03-01", 0, 5))
	f.workDay(t, "2026-02-02", 8, 17)
	feb := worktime.MonthPeriod(worktime.MustParseDate("2026-02-01"))

	// WHEN
	pc, err := f.svc.CloseMonth(ctx, "alice", feb, f.svc.Now())
	require.NoError(t, err)
	require.NotNil(t, pc)

	// THEN: February 2026 has 20 weekdays, 4 Fridays, no French holiday
	assert.Equal(t, worktime.CloseCompleted, pc.Status)
	assert.Equal(t, 540, pc.WorkedMinutes)
	assert.Equal(t, 16*510+4*450, pc.RequiredMinutes)
	assert.Equal(t, 540-(16*510+4*450), pc.BalanceMinutes)

	// AND: Closing again is a no-op
	again, err := f.svc.CloseMonth(ctx, "alice", feb, f.svc.Now())
	require.NoError(t, err)
	assert.Nil(t, again)

	list, err := f.svc.PeriodCloses(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_CloseMonthRejectsCurrentMonth(t *testing.T) {
	f := newFixture(t, at("2026-03-15", 12, 0))

	_, err := f.svc.CloseMonth(context.Background(), "alice", worktime.MonthPeriod(worktime.MustParseDate("2026-03-01")), f.svc.Now())
	assert.ErrorIs(t, err, ErrPeriodNotOver)
}
