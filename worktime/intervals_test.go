package worktime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/worktime"
)

// =============================================================================
// STATE MACHINE
// =============================================================================

func TestReconstruct_LunchBreakDay(t *testing.T) {
	// GIVEN: START 08:00, END(lunch) 12:00, START 13:00, END(eod) 17:30
	log := (&eventLog{}).
		start(at("2026-03-02", 8, 0)).
		end(at("2026-03-02", 12, 0), worktime.ReasonLunch).
		start(at("2026-03-02", 13, 0)).
		end(at("2026-03-02", 17, 30), worktime.ReasonEndOfDay)

	// WHEN: Reconstructing
	rec := worktime.Reconstruct(log.events, at("2026-03-02", 18, 0))

	// THEN: WORK, BREAK, WORK, all closed and contiguous
	require.Len(t, rec.Intervals, 3)
	assert.Empty(t, rec.Diagnostics)

	assert.Equal(t, worktime.KindWork, rec.Intervals[0].Kind)
	assert.Equal(t, worktime.KindBreak, rec.Intervals[1].Kind)
	assert.Equal(t, worktime.ReasonLunch, rec.Intervals[1].Reason)
	assert.Equal(t, worktime.KindWork, rec.Intervals[2].Kind)

	assert.Equal(t, *rec.Intervals[0].End, rec.Intervals[1].Start, "work ends where break begins")
	assert.Equal(t, *rec.Intervals[1].End, rec.Intervals[2].Start, "break ends where work resumes")
	assert.False(t, rec.Working())
	assert.False(t, rec.OnBreak())
}

func TestReconstruct_TrailingStartStaysOpen(t *testing.T) {
	log := (&eventLog{}).start(at("2026-03-06", 9, 0))
	now := at("2026-03-06", 11, 0)

	rec := worktime.Reconstruct(log.events, now)

	require.Len(t, rec.Intervals, 1)
	assert.True(t, rec.Intervals[0].Open(), "end must not be written back")
	assert.Equal(t, 2*time.Hour, rec.Intervals[0].Duration(now))
	assert.True(t, rec.Working())
}

func TestReconstruct_OpenBreak(t *testing.T) {
	log := (&eventLog{}).
		start(at("2026-03-02", 8, 0)).
		end(at("2026-03-02", 10, 0), worktime.ReasonShortBreak)

	rec := worktime.Reconstruct(log.events, at("2026-03-02", 10, 5))

	require.Len(t, rec.Intervals, 2)
	assert.True(t, rec.OnBreak())
	assert.Equal(t, worktime.ReasonShortBreak, rec.Intervals[1].Reason)
}

func TestReconstruct_DoubleStart_LaterWins(t *testing.T) {
	// GIVEN: Two consecutive starts
	log := (&eventLog{}).
		start(at("2026-03-02", 8, 0)).
		start(at("2026-03-02", 9, 0)).
		end(at("2026-03-02", 10, 0), worktime.ReasonEndOfDay)

	rec := worktime.Reconstruct(log.events, at("2026-03-02", 12, 0))

	// THEN: Only 09:00-10:00 survives, with a diagnostic
	require.Len(t, rec.Intervals, 1)
	assert.Equal(t, at("2026-03-02", 9, 0), rec.Intervals[0].Start)
	require.Len(t, rec.Diagnostics, 1)
	assert.Equal(t, worktime.DiagDoubleStart, rec.Diagnostics[0].Code)
	assert.Equal(t, worktime.EventID("ev-002"), rec.Diagnostics[0].EventID)
}

func TestReconstruct_DanglingEndIgnored(t *testing.T) {
	log := (&eventLog{}).
		end(at("2026-03-02", 7, 0), worktime.ReasonEndOfDay).
		workDay("2026-03-02", 9, 0, 10, 0)

	rec := worktime.Reconstruct(log.events, at("2026-03-02", 12, 0))

	require.Len(t, rec.Intervals, 1)
	require.Len(t, rec.Diagnostics, 1)
	assert.Equal(t, worktime.DiagDanglingEnd, rec.Diagnostics[0].Code)
}

func TestReconstruct_EndDuringBreak(t *testing.T) {
	t.Run("end of day drops the open break", func(t *testing.T) {
		log := (&eventLog{}).
			start(at("2026-03-02", 8, 0)).
			end(at("2026-03-02", 12, 0), worktime.ReasonLunch).
			end(at("2026-03-02", 12, 30), worktime.ReasonEndOfDay)

		rec := worktime.Reconstruct(log.events, at("2026-03-02", 18, 0))

		require.Len(t, rec.Intervals, 1)
		assert.Equal(t, worktime.KindWork, rec.Intervals[0].Kind)
		require.Len(t, rec.Diagnostics, 1)
		assert.Equal(t, worktime.DiagEndDuringBreak, rec.Diagnostics[0].Code)
		assert.False(t, rec.OnBreak())
	})

	t.Run("break reason reopens a break", func(t *testing.T) {
		log := (&eventLog{}).
			start(at("2026-03-02", 8, 0)).
			end(at("2026-03-02", 10, 0), worktime.ReasonShortBreak).
			end(at("2026-03-02", 10, 15), worktime.ReasonLunch)

		rec := worktime.Reconstruct(log.events, at("2026-03-02", 11, 0))

		require.Len(t, rec.Intervals, 2)
		assert.True(t, rec.OnBreak())
		assert.Equal(t, at("2026-03-02", 10, 15), rec.Intervals[1].Start)
		assert.Equal(t, worktime.ReasonLunch, rec.Intervals[1].Reason)
		require.Len(t, rec.Diagnostics, 1)
	})
}

func TestReconstruct_UnsortedInput(t *testing.T) {
	log := (&eventLog{}).
		start(at("2026-03-02", 8, 0)).
		end(at("2026-03-02", 12, 0), worktime.ReasonLunch).
		start(at("2026-03-02", 13, 0)).
		end(at("2026-03-02", 17, 30), worktime.ReasonEndOfDay)
	now := at("2026-03-02", 18, 0)

	shuffled := []worktime.Event{log.events[3], log.events[1], log.events[0], log.events[2]}

	assert.Equal(t, worktime.Reconstruct(log.events, now), worktime.Reconstruct(shuffled, now))
	assert.Equal(t, worktime.EventID("ev-004"), shuffled[0].ID, "input slice must not be reordered")
}

func TestReconstruct_TieBrokenBySeq(t *testing.T) {
	// GIVEN: START and END at the same instant, END inserted first
	same := at("2026-03-02", 9, 0)
	events := []worktime.Event{
		{ID: "b", Type: worktime.SessionEnd, At: same, Reason: worktime.ReasonEndOfDay, Seq: 1},
		{ID: "a", Type: worktime.SessionStart, At: same, Seq: 2},
	}

	rec := worktime.Reconstruct(events, at("2026-03-02", 10, 0))

	// THEN: The END is dangling, the START opens a session
	require.Len(t, rec.Diagnostics, 1)
	assert.Equal(t, worktime.DiagDanglingEnd, rec.Diagnostics[0].Code)
	assert.True(t, rec.Working())
}

// =============================================================================
// DURATIONS
// =============================================================================

func TestInterval_CrossMidnightCorrection(t *testing.T) {
	end := at("2026-03-02", 2, 0)
	iv := worktime.Interval{Kind: worktime.KindWork, Start: at("2026-03-02", 22, 0), End: &end}

	assert.Equal(t, 4*time.Hour, iv.Duration(time.Time{}))
}

func TestInterval_OpenClampedOnClockSkew(t *testing.T) {
	iv := worktime.Interval{Kind: worktime.KindWork, Start: at("2026-03-02", 10, 0)}

	assert.Equal(t, time.Duration(0), iv.Duration(at("2026-03-02", 9, 0)))
}

func TestRoundTrip_NestedBreaks(t *testing.T) {
	// GIVEN: 08:00-18:00 with three break pairs (15 + 60 + 10 minutes)
	log := (&eventLog{}).
		start(at("2026-03-02", 8, 0)).
		end(at("2026-03-02", 10, 0), worktime.ReasonShortBreak).
		start(at("2026-03-02", 10, 15)).
		end(at("2026-03-02", 12, 0), worktime.ReasonLunch).
		start(at("2026-03-02", 13, 0)).
		end(at("2026-03-02", 15, 30), worktime.ReasonShortBreak).
		start(at("2026-03-02", 15, 40)).
		end(at("2026-03-02", 18, 0), worktime.ReasonEndOfDay)
	now := at("2026-03-02", 20, 0)
	day := worktime.DayPeriod(worktime.MustParseDate("2026-03-02"))

	rec := worktime.Reconstruct(log.events, now)

	// THEN: worked == (end - start) - breaks
	assert.Equal(t, 600-85, worktime.WorkedMinutes(rec.Intervals, day, time.UTC, now))
	assert.Equal(t, 85, worktime.BreakMinutes(rec.Intervals, day, time.UTC, now))

	// AND: The same day entered as a session gives the same totals
	end := at("2026-03-02", 18, 0)
	session := worktime.Session{
		Start: at("2026-03-02", 8, 0),
		End:   &end,
		Breaks: []worktime.Break{
			{Start: at("2026-03-02", 12, 0), End: ptr(at("2026-03-02", 13, 0)), Reason: worktime.ReasonLunch},
			{Start: at("2026-03-02", 10, 0), End: ptr(at("2026-03-02", 10, 15)), Reason: worktime.ReasonShortBreak},
			{Start: at("2026-03-02", 15, 30), End: ptr(at("2026-03-02", 15, 40)), Reason: worktime.ReasonShortBreak},
		},
	}
	fromSession := worktime.SessionIntervals([]worktime.Session{session})
	assert.Equal(t, 515, worktime.WorkedMinutes(fromSession, day, time.UTC, now))
	assert.Equal(t, 85, worktime.BreakMinutes(fromSession, day, time.UTC, now))
}

func TestRoundTrip_SubSecondBreaks(t *testing.T) {
	// GIVEN: Three pairs whose stamps carry fractions of a second
	ms := func(h, m, n int) time.Time { return at("2026-03-02", h, m).Add(time.Duration(n) * time.Millisecond) }
	log := (&eventLog{}).
		start(ms(8, 0, 700)).
		end(ms(10, 0, 300), worktime.ReasonShortBreak).
		start(ms(10, 15, 900)).
		end(ms(12, 0, 200), worktime.ReasonLunch).
		start(ms(13, 0, 600)).
		end(ms(18, 0, 800), worktime.ReasonEndOfDay)
	now := at("2026-03-02", 20, 0)
	day := worktime.DayPeriod(worktime.MustParseDate("2026-03-02"))

	rec := worktime.Reconstruct(log.events, now)

	// THEN: Work 1h59m59.6s + 1h44m59.3s + 5h0m0.2s = 8h44m59.1s
	assert.Equal(t, int64(31499), worktime.WorkedSeconds(rec.Intervals, day, time.UTC, now))
	// AND: Breaks 15m0.6s + 1h0m0.4s = 1h15m1s
	assert.Equal(t, int64(4501), worktime.BreakSeconds(rec.Intervals, day, time.UTC, now))

	totals := worktime.DailyTotals(rec.Intervals, day, time.UTC, now)[day.Start]
	assert.Equal(t, int64(31499), totals.WorkedSeconds)
	assert.Equal(t, int64(4501), totals.BreakSeconds)
	assert.Equal(t, 524, totals.WorkedMinutes())
}

func TestSessionIntervals_CrossMidnight(t *testing.T) {
	// GIVEN: A night shift entered as 22:00 -> 01:00 on the same date
	end := at("2026-03-02", 1, 0)
	s := worktime.Session{Start: at("2026-03-02", 22, 0), End: &end}

	ivs := worktime.SessionIntervals([]worktime.Session{s})

	// THEN: 3 hours, attributed to the start date
	day := worktime.DayPeriod(worktime.MustParseDate("2026-03-02"))
	assert.Equal(t, 180, worktime.WorkedMinutes(ivs, day, time.UTC, at("2026-03-03", 8, 0)))
}

func TestSessionIntervals_OpenBreakEndsWithSession(t *testing.T) {
	end := at("2026-03-02", 17, 0)
	s := worktime.Session{
		Start:  at("2026-03-02", 9, 0),
		End:    &end,
		Breaks: []worktime.Break{{Start: at("2026-03-02", 16, 0), Reason: worktime.ReasonShortBreak}},
	}

	ivs := worktime.SessionIntervals([]worktime.Session{s})
	day := worktime.DayPeriod(worktime.MustParseDate("2026-03-02"))
	now := at("2026-03-02", 23, 0)

	assert.Equal(t, 7*60, worktime.WorkedMinutes(ivs, day, time.UTC, now))
	assert.Equal(t, 60, worktime.BreakMinutes(ivs, day, time.UTC, now))
}

func TestSessionIntervals_OpenSessionOnBreak(t *testing.T) {
	s := worktime.Session{
		Start:  at("2026-03-02", 9, 0),
		Breaks: []worktime.Break{{Start: at("2026-03-02", 12, 0), Reason: worktime.ReasonLunch}},
	}

	ivs := worktime.SessionIntervals([]worktime.Session{s})
	require.Len(t, ivs, 2)
	assert.True(t, ivs[1].Open())
	assert.Equal(t, worktime.KindBreak, ivs[1].Kind)

	day := worktime.DayPeriod(worktime.MustParseDate("2026-03-02"))
	now := at("2026-03-02", 12, 30)
	assert.Equal(t, 180, worktime.WorkedMinutes(ivs, day, time.UTC, now))
	assert.Equal(t, 30, worktime.BreakMinutes(ivs, day, time.UTC, now))
}

// =============================================================================
// PARSING AT THE BOUNDARY
// =============================================================================

func TestParseReason(t *testing.T) {
	cases := map[string]worktime.Reason{
		"":            worktime.ReasonNone,
		"lunch":       worktime.ReasonLunch,
		"short-break": worktime.ReasonShortBreak,
		"short":       worktime.ReasonShortBreak,
		"END_OF_DAY":  worktime.ReasonEndOfDay,
		"eod":         worktime.ReasonEndOfDay,
	}
	for in, want := range cases {
		got, err := worktime.ParseReason(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := worktime.ParseReason("coffee")
	assert.ErrorIs(t, err, worktime.ErrInvalidEvent)
	assert.True(t, worktime.IsClientError(err))
}

func TestParseEventType(t *testing.T) {
	typ, err := worktime.ParseEventType("SESSION_START")
	require.NoError(t, err)
	assert.Equal(t, worktime.SessionStart, typ)

	typ, err = worktime.ParseEventType("end")
	require.NoError(t, err)
	assert.Equal(t, worktime.SessionEnd, typ)

	_, err = worktime.ParseEventType("pause")
	assert.ErrorIs(t, err, worktime.ErrInvalidEvent)
}

func TestEventValidate(t *testing.T) {
	ok := worktime.Event{Type: worktime.SessionEnd, At: at("2026-03-02", 9, 0), Reason: worktime.ReasonLunch}
	assert.NoError(t, ok.Validate())

	startWithReason := worktime.Event{Type: worktime.SessionStart, At: at("2026-03-02", 9, 0), Reason: worktime.ReasonLunch}
	assert.ErrorIs(t, startWithReason.Validate(), worktime.ErrInvalidEvent)

	noTime := worktime.Event{Type: worktime.SessionStart}
	assert.ErrorIs(t, noTime.Validate(), worktime.ErrInvalidEvent)
}

func ptr(t time.Time) *time.Time { return &t }
