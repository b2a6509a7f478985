package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodCloseScheduler_ClosesPreviousMonthOnce(t *testing.T) {
	ctx := context.Background()
	f := newAPIFixture(t, at("2026-03-02", 9, 0))

	// GIVEN: A subject who worked in February
	f.record(t, "start", "", at("2026-02-02", 9, 0))
	f.record(t, "end", "end_of_day", at("2026-02-02", 17, 30))

	ps, err := NewPeriodCloseScheduler(f.svc, "@hourly", zerolog.Nop())
	require.NoError(t, err)

	// WHEN: Two passes run
	first := ps.RunNow(ctx)
	second := ps.RunNow(ctx)

	// THEN: February is closed once
	assert.Equal(t, RunResult{Closed: 1}, first)
	assert.Equal(t, RunResult{Skipped: 1}, second)

	closes, err := f.svc.PeriodCloses(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, closes, 1)
	assert.Equal(t, "2026-02-01", closes[0].Period.Start.String())
	assert.Equal(t, 510, closes[0].WorkedMinutes)

	rec := f.do(t, http.MethodGet, "/api/subjects/alice/periods", nil)
	assert.Len(t, decode[[]PeriodCloseDTO](t, rec), 1)
}

func TestPeriodCloseScheduler_RejectsBadSpec(t *testing.T) {
	f := newAPIFixture(t, at("2026-03-02", 9, 0))

	_, err := NewPeriodCloseScheduler(f.svc, "every now and then", zerolog.Nop())
	assert.Error(t, err)
}

func TestPeriodCloseScheduler_StartStop(t *testing.T) {
	f := newAPIFixture(t, at("2026-03-02", 9, 0))

	ps, err := NewPeriodCloseScheduler(f.svc, "@hourly", zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, ps.NextRun().IsZero(), "no next run before Start")

	ps.Start()
	ps.Start()
	assert.False(t, ps.NextRun().IsZero())

	ps.Stop()
	ps.Stop()
}

func TestPeriodCloseScheduler_StopWaitsForInitialPass(t *testing.T) {
	ctx := context.Background()
	f := newAPIFixture(t, at("2026-03-02", 9, 0))

	// GIVEN: A February day waiting to be closed
	f.record(t, "start", "", at("2026-02-02", 9, 0))
	f.record(t, "end", "end_of_day", at("2026-02-02", 17, 30))

	ps, err := NewPeriodCloseScheduler(f.svc, "@hourly", zerolog.Nop())
	require.NoError(t, err)

	// WHEN: The scheduler is started and stopped straight away
	ps.Start()
	ps.Stop()

	// THEN: The initial pass has already written its close
	closes, err := f.svc.PeriodCloses(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, closes, 1)
	assert.Equal(t, "2026-02-01", closes[0].Period.Start.String())
}
