/*
scheduler.go - Automated period close scheduler

PURPOSE:
  Periodically freezes the final balance of every subject's previous month
  into a period_closes row.

DESIGN:
  - Runs on a cron spec (default "@hourly") in the rules' time zone
  - Runs once immediately on Start
  - Skips months that are already closed, so repeated runs are no-ops
  - Records running / completed / failed for audit and UI display

USAGE:
  scheduler, err := NewPeriodCloseScheduler(svc, "@hourly", logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ClosePeriod endpoint (manual close)
  - tracker/tracker.go: CloseMonth
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/warp/worktime/tracker"
	"github.com/warp/worktime/worktime"
)

// PeriodCloseScheduler closes finished months on a cron schedule.
type PeriodCloseScheduler struct {
	svc    *tracker.Service
	cron   *cron.Cron
	entry  cron.EntryID
	logger zerolog.Logger

	mu      sync.Mutex
	started bool
	initial sync.WaitGroup
}

// RunResult counts what one pass did.
type RunResult struct {
	Closed  int
	Skipped int
	Failed  int
}

// NewPeriodCloseScheduler creates a scheduler. spec is a standard cron
// expression or descriptor ("@hourly", "5 0 1 * *").
func NewPeriodCloseScheduler(svc *tracker.Service, spec string, logger zerolog.Logger) (*PeriodCloseScheduler, error) {
	ps := &PeriodCloseScheduler{
		svc:    svc,
		cron:   cron.New(cron.WithLocation(svc.Location())),
		logger: logger.With().Str("component", "scheduler").Logger(),
	}

	id, err := ps.cron.AddFunc(spec, func() { ps.RunNow(context.Background()) })
	if err != nil {
		return nil, fmt.Errorf("invalid period close schedule %q: %w", spec, err)
	}
	ps.entry = id
	return ps, nil
}

// Start runs one pass in the background and begins the schedule.
func (ps *PeriodCloseScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.started {
		return
	}
	ps.started = true

	ps.initial.Add(1)
	go func() {
		defer ps.initial.Done()
		ps.RunNow(context.Background())
	}()
	ps.cron.Start()

	ps.logger.Info().Time("next_run", ps.NextRun()).Msg("Scheduler started")
}

// Stop halts the schedule and waits for running passes, the initial one
// included, to finish.
func (ps *PeriodCloseScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.started {
		return
	}
	ps.started = false

	<-ps.cron.Stop().Done()
	ps.initial.Wait()
	ps.logger.Info().Msg("Scheduler stopped")
}

// RunNow closes the previous month of every subject.
func (ps *PeriodCloseScheduler) RunNow(ctx context.Context) RunResult {
	var res RunResult
	now := ps.svc.Now()
	month := ps.svc.Today().StartOfMonth().AddMonths(-1)

	subjects, err := ps.svc.Subjects(ctx)
	if err != nil {
		ps.logger.Error().Err(err).Msg("Failed to list subjects")
		return res
	}

	for _, subject := range subjects {
		pc, err := ps.svc.CloseMonth(ctx, subject, worktime.MonthPeriod(month), now)
		switch {
		case err != nil:
			res.Failed++
			ps.logger.Error().Err(err).Str("subject", string(subject)).Msg("Failed to close period")
		case pc == nil:
			res.Skipped++
		default:
			res.Closed++
		}
	}

	if res.Closed > 0 || res.Failed > 0 {
		ps.logger.Info().
			Int("closed", res.Closed).
			Int("skipped", res.Skipped).
			Int("failed", res.Failed).
			Msg("Period close pass completed")
	}
	return res
}

// NextRun returns when the next scheduled pass will occur. It is zero
// until Start.
func (ps *PeriodCloseScheduler) NextRun() time.Time {
	return ps.cron.Entry(ps.entry).Next
}
