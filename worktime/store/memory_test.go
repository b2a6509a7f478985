package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/worktime"
	"github.com/warp/worktime/worktime/store"
)

func TestMemory_EventsOrderedByTimeThenSeq(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// GIVEN: Events appended out of order, two sharing a timestamp
	_, err := m.AppendEvent(ctx, worktime.Event{ID: "c", Subject: "alice", Type: worktime.SessionEnd, At: t0.Add(time.Hour)})
	require.NoError(t, err)
	_, err = m.AppendEvent(ctx, worktime.Event{ID: "a", Subject: "alice", Type: worktime.SessionStart, At: t0})
	require.NoError(t, err)
	_, err = m.AppendEvent(ctx, worktime.Event{ID: "b", Subject: "alice", Type: worktime.SessionEnd, At: t0})
	require.NoError(t, err)

	// WHEN
	events, err := m.LoadEvents(ctx, "alice", time.Time{}, time.Time{})
	require.NoError(t, err)

	// THEN
	require.Len(t, events, 3)
	assert.Equal(t, []worktime.EventID{"a", "b", "c"}, []worktime.EventID{events[0].ID, events[1].ID, events[2].ID})
	assert.Less(t, events[0].Seq, events[1].Seq)

	last, err := m.LastEvent(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, worktime.EventID("c"), last.ID)
}

func TestMemory_DuplicateAndMissing(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	e := worktime.Event{ID: "a", Subject: "alice", Type: worktime.SessionStart, At: time.Now()}

	_, err := m.AppendEvent(ctx, e)
	require.NoError(t, err)
	_, err = m.AppendEvent(ctx, e)
	assert.ErrorIs(t, err, worktime.ErrDuplicateEvent)

	_, err = m.DeleteEvent(ctx, "alice", "nope")
	assert.ErrorIs(t, err, worktime.ErrEventNotFound)

	deleted, err := m.DeleteEvent(ctx, "alice", "a")
	require.NoError(t, err)
	assert.Equal(t, worktime.EventID("a"), deleted.ID)

	last, err := m.LastEvent(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestMemory_LoadRangeHalfOpen(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i, id := range []worktime.EventID{"a", "b", "c"} {
		_, err := m.AppendEvent(ctx, worktime.Event{
			ID: id, Subject: "alice", Type: worktime.SessionStart, At: day.Add(time.Duration(12*i) * time.Hour),
		})
		require.NoError(t, err)
	}

	events, err := m.LoadEvents(ctx, "alice", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestMemory_Holidays(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	h := worktime.Holiday{ID: "h-1", Date: worktime.MustParseDate("2026-05-15"), Name: "Bridge", Origin: worktime.OriginCustom}
	require.NoError(t, m.SaveHoliday(ctx, "alice", h))

	list, err := m.ListHolidays(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	others, err := m.ListHolidays(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, m.SetHolidayDisabled(ctx, "alice", "2026-05-01", true))
	disabled, err := m.DisabledHolidays(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-05-01"}, disabled)

	require.NoError(t, m.SetHolidayDisabled(ctx, "alice", "2026-05-01", false))
	disabled, err = m.DisabledHolidays(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, disabled)

	require.NoError(t, m.DeleteHoliday(ctx, "alice", "h-1"))
	assert.ErrorIs(t, m.DeleteHoliday(ctx, "alice", "h-1"), worktime.ErrHolidayNotFound)
}

func TestMemory_PeriodCloses(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	feb := worktime.MonthPeriod(worktime.MustParseDate("2026-02-01"))
	mar := worktime.MonthPeriod(worktime.MustParseDate("2026-03-01"))

	// GIVEN: A running close for February
	require.NoError(t, m.SavePeriodClose(ctx, worktime.PeriodClose{Subject: "alice", Period: feb, Status: worktime.CloseRunning}))
	closed, err := m.IsPeriodClosed(ctx, "alice", feb)
	require.NoError(t, err)
	assert.False(t, closed, "running is not closed")

	// WHEN: It completes, and March is closed too
	require.NoError(t, m.SavePeriodClose(ctx, worktime.PeriodClose{Subject: "alice", Period: feb, Status: worktime.CloseCompleted, BalanceMinutes: -30}))
	require.NoError(t, m.SavePeriodClose(ctx, worktime.PeriodClose{Subject: "alice", Period: mar, Status: worktime.CloseCompleted}))

	// THEN
	closed, err = m.IsPeriodClosed(ctx, "alice", feb)
	require.NoError(t, err)
	assert.True(t, closed)

	list, err := m.ListPeriodCloses(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, mar, list[0].Period)
	assert.Equal(t, -30, list[1].BalanceMinutes)
}
