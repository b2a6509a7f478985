/*
Package tracker is the service layer between the stores and the engine.

PURPOSE:

	Every read loads one consistent snapshot (events, custom holidays,
	disabled public holidays) and hands plain values to the pure functions
	in package worktime. Every write validates at the boundary, persists,
	and invalidates the completed-day cache where needed.

EVENT WINDOW:

	A computation over a period loads events from the day before the period
	starts up to two days after it ends (capped at now). The extra day on
	each side lets a session that crosses midnight pair correctly without
	reporting spurious dangling ends.

SEE ALSO:
  - live.go: Pushes snapshots to live subscribers on a ticker
  - worktime/balance.go: ComputeBalance
  - api/handlers.go: HTTP surface
*/
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/warp/worktime/factory"
	"github.com/warp/worktime/metrics"
	"github.com/warp/worktime/worktime"
)

// Config parameterizes a Service. Zero values take sensible defaults.
type Config struct {
	RuleSet factory.RuleSet
	Cache   *worktime.DayCache
	Clock   worktime.Clock
	Logger  zerolog.Logger
	// NewID generates event and holiday IDs. Defaults to uuid.NewString.
	NewID func() string
}

// Service records events and computes balances for any number of subjects.
type Service struct {
	store    worktime.Store
	rules    worktime.Rules
	policy   worktime.BalancePolicy
	calendar worktime.PublicCalendar
	cache    *worktime.DayCache
	calc     *worktime.Calculator
	clock    worktime.Clock
	logger   zerolog.Logger
	newID    func() string
}

func New(store worktime.Store, cfg Config) *Service {
	s := &Service{
		store:    store,
		rules:    cfg.RuleSet.Rules,
		policy:   cfg.RuleSet.Policy,
		calendar: cfg.RuleSet.Calendar,
		cache:    cfg.Cache,
		calc:     worktime.NewCalculator(cfg.Cache),
		clock:    cfg.Clock,
		logger:   cfg.Logger.With().Str("component", "tracker").Logger(),
		newID:    cfg.NewID,
	}
	if s.policy == 0 {
		s.policy = worktime.PolicyPlain
	}
	if s.calendar == nil {
		s.calendar = worktime.NoPublicHolidays{}
	}
	if s.clock == nil {
		s.clock = worktime.SystemClock{}
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.cache != nil && s.cache.OnLookup == nil {
		s.cache.OnLookup = metrics.ObserveCacheLookup
	}
	return s
}

// Now reads the injected clock.
func (s *Service) Now() time.Time { return s.clock.Now() }

// Location is the user's wall-clock zone.
func (s *Service) Location() *time.Location { return s.rules.Loc() }

// Today is the civil date of now in the configured zone.
func (s *Service) Today() worktime.Date { return worktime.DateOf(s.Now(), s.Location()) }

// RuleSet returns the active rule set.
func (s *Service) RuleSet() factory.RuleSet {
	return factory.RuleSet{Rules: s.rules, Policy: s.policy, Calendar: s.calendar}
}

// =============================================================================
// BALANCE
// =============================================================================

// Balance computes the snapshot of subject at now.
func (s *Service) Balance(ctx context.Context, subject worktime.SubjectID, now time.Time) (worktime.BalanceSnapshot, error) {
	started := time.Now()

	month := worktime.MonthPeriod(worktime.DateOf(now, s.Location()))
	events, err := s.loadWindow(ctx, subject, month, now)
	if err != nil {
		return worktime.BalanceSnapshot{}, err
	}
	hs, err := s.HolidaySet(ctx, subject)
	if err != nil {
		return worktime.BalanceSnapshot{}, err
	}

	snap := s.calc.Balance(subject, worktime.BalanceInput{
		Events:   events,
		Holidays: hs,
		Rules:    s.rules,
		Policy:   s.policy,
		Now:      now,
	})

	metrics.BalanceComputations.WithLabelValues(s.policy.String()).Inc()
	metrics.BalanceDuration.Observe(time.Since(started).Seconds())
	return snap, nil
}

// =============================================================================
// EVENTS
// =============================================================================

// RecordRequest is a START or END to append. A nil At means now.
type RecordRequest struct {
	Type   worktime.EventType
	Reason worktime.Reason
	At     *time.Time
}

// RecordResult is the stored event plus the repairs it caused, if any.
type RecordResult struct {
	Event       worktime.Event
	Diagnostics []worktime.Diagnostic
}

// RecordEvent validates and appends an event.
func (s *Service) RecordEvent(ctx context.Context, subject worktime.SubjectID, req RecordRequest) (RecordResult, error) {
	now := s.Now()
	at := now
	if req.At != nil {
		at = *req.At
	}

	e := worktime.Event{
		ID:      worktime.EventID(s.newID()),
		Subject: subject,
		Type:    req.Type,
		At:      at,
		Reason:  req.Reason,
	}
	if subject == "" {
		return RecordResult{}, &worktime.ValidationError{Field: "subject", Message: "subject is required", Err: worktime.ErrInvalidEvent}
	}
	if err := e.Validate(); err != nil {
		return RecordResult{}, err
	}

	last, err := s.store.LastEvent(ctx, subject)
	if err != nil {
		return RecordResult{}, fmt.Errorf("failed to load last event: %w", err)
	}
	stored, err := s.store.AppendEvent(ctx, e)
	if err != nil {
		return RecordResult{}, fmt.Errorf("failed to record event: %w", err)
	}
	s.invalidate(subject, stored.At, last, now)

	metrics.EventsRecorded.WithLabelValues(stored.Type.String(), stored.Reason.String()).Inc()

	diags, err := s.diagnosticsFor(ctx, stored, now)
	if err != nil {
		// The event is stored; a failed re-read only loses the report.
		s.logger.Warn().Err(err).Str("event", string(stored.ID)).Msg("Failed to check event sequence")
	}
	for _, d := range diags {
		metrics.Diagnostics.WithLabelValues(string(d.Code)).Inc()
		s.logger.Warn().
			Str("subject", string(subject)).
			Str("code", string(d.Code)).
			Str("event", string(d.EventID)).
			Msg(d.Message)
	}

	s.logger.Debug().
		Str("subject", string(subject)).
		Str("event", string(stored.ID)).
		Str("type", stored.Type.String()).
		Str("reason", stored.Reason.String()).
		Time("at", stored.At).
		Msg("Event recorded")

	return RecordResult{Event: stored, Diagnostics: diags}, nil
}

// DeleteEvent removes an event and drops every cached day of the subject.
func (s *Service) DeleteEvent(ctx context.Context, subject worktime.SubjectID, id worktime.EventID) (worktime.Event, error) {
	e, err := s.store.DeleteEvent(ctx, subject, id)
	if err != nil {
		return worktime.Event{}, err
	}
	if s.cache != nil {
		s.cache.InvalidateSubject(subject)
	}
	metrics.EventsDeleted.Inc()

	s.logger.Info().
		Str("subject", string(subject)).
		Str("event", string(id)).
		Time("at", e.At).
		Msg("Event deleted")
	return e, nil
}

// Events lists the events whose instant falls in p.
func (s *Service) Events(ctx context.Context, subject worktime.SubjectID, p worktime.Period) ([]worktime.Event, error) {
	from, to := p.Bounds(s.Location())
	events, err := s.store.LoadEvents(ctx, subject, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return events, nil
}

// LastEvent returns the most recent event of subject, nil if none.
func (s *Service) LastEvent(ctx context.Context, subject worktime.SubjectID) (*worktime.Event, error) {
	return s.store.LastEvent(ctx, subject)
}

// Subjects lists every subject with at least one event.
func (s *Service) Subjects(ctx context.Context) ([]worktime.SubjectID, error) {
	return s.store.ListSubjects(ctx)
}

// invalidate drops cached days an event at at can change. An event that
// does not follow the subject's latest one can re-pair an interval opened
// on any earlier day, so the whole subject goes.
func (s *Service) invalidate(subject worktime.SubjectID, at time.Time, last *worktime.Event, now time.Time) {
	if s.cache == nil {
		return
	}
	d := worktime.DateOf(at, s.Location())
	if d.Before(worktime.DateOf(now, s.Location())) || (last != nil && !at.After(last.At)) {
		s.cache.InvalidateSubject(subject)
		return
	}
	s.cache.Invalidate(subject, d)
}

// diagnosticsFor returns the repairs that mention e.
func (s *Service) diagnosticsFor(ctx context.Context, e worktime.Event, now time.Time) ([]worktime.Diagnostic, error) {
	d := worktime.DateOf(e.At, s.Location())
	events, err := s.loadWindow(ctx, e.Subject, worktime.DayPeriod(d), maxTime(now, e.At))
	if err != nil {
		return nil, err
	}
	rec := worktime.Reconstruct(events, now)

	var diags []worktime.Diagnostic
	for _, diag := range rec.Diagnostics {
		if diag.EventID == e.ID {
			diags = append(diags, diag)
		}
	}
	return diags, nil
}

// =============================================================================
// SUMMARIES
// =============================================================================

// Intervals reconstructs the intervals relevant to p.
func (s *Service) Intervals(ctx context.Context, subject worktime.SubjectID, p worktime.Period, now time.Time) (worktime.Reconstruction, error) {
	events, err := s.loadWindow(ctx, subject, p, now)
	if err != nil {
		return worktime.Reconstruction{}, err
	}
	return worktime.Reconstruct(events, now), nil
}

// Week summarizes the Monday-Sunday week containing d.
func (s *Service) Week(ctx context.Context, subject worktime.SubjectID, d worktime.Date, now time.Time) (worktime.WeekSummary, error) {
	rec, hs, err := s.snapshot(ctx, subject, worktime.WeekPeriod(d), now)
	if err != nil {
		return worktime.WeekSummary{}, err
	}
	return worktime.SummarizeWeek(rec.Intervals, d, s.rules, hs, now), nil
}

// Month summarizes the calendar month containing d.
func (s *Service) Month(ctx context.Context, subject worktime.SubjectID, d worktime.Date, now time.Time) (worktime.MonthSummary, error) {
	rec, hs, err := s.snapshot(ctx, subject, worktime.MonthPeriod(d), now)
	if err != nil {
		return worktime.MonthSummary{}, err
	}
	return worktime.SummarizeMonth(rec.Intervals, d, s.rules, hs, now), nil
}

// Days returns one row per date of p for calendar views.
func (s *Service) Days(ctx context.Context, subject worktime.SubjectID, p worktime.Period, now time.Time) ([]worktime.DaySummary, error) {
	rec, hs, err := s.snapshot(ctx, subject, p, now)
	if err != nil {
		return nil, err
	}
	return worktime.SummarizeDays(rec.Intervals, p, s.rules, hs, now), nil
}

func (s *Service) snapshot(ctx context.Context, subject worktime.SubjectID, p worktime.Period, now time.Time) (worktime.Reconstruction, worktime.HolidaySet, error) {
	rec, err := s.Intervals(ctx, subject, p, now)
	if err != nil {
		return worktime.Reconstruction{}, worktime.HolidaySet{}, err
	}
	hs, err := s.HolidaySet(ctx, subject)
	if err != nil {
		return worktime.Reconstruction{}, worktime.HolidaySet{}, err
	}
	return rec, hs, nil
}

// loadWindow loads [p.Start-1, p.End+2) capped at now (inclusive), preceded
// by the lead-in of any session still open when the window starts.
func (s *Service) loadWindow(ctx context.Context, subject worktime.SubjectID, p worktime.Period, now time.Time) ([]worktime.Event, error) {
	loc := s.Location()
	from := p.Start.AddDays(-1).Start(loc)
	to := p.End.AddDays(2).Start(loc)
	if limit := now.Add(time.Nanosecond); limit.Before(to) {
		to = limit
	}
	if !from.Before(to) {
		return nil, nil
	}

	lead, err := s.leadIn(ctx, subject, from)
	if err != nil {
		return nil, err
	}
	events, err := s.store.LoadEvents(ctx, subject, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	if len(lead) == 0 {
		return events, nil
	}
	return append(lead, events...), nil
}

const (
	leadInDays   = 31
	leadInChunks = 12
)

// leadIn returns the events from the last START before from onward when
// the subject is still working or on break at from, nil when idle. It
// walks back a month at a time and gives up after a year or at the first
// empty month.
func (s *Service) leadIn(ctx context.Context, subject worktime.SubjectID, from time.Time) ([]worktime.Event, error) {
	var lead []worktime.Event
	hi := from
	for i := 0; i < leadInChunks; i++ {
		lo := hi.AddDate(0, 0, -leadInDays)
		chunk, err := s.store.LoadEvents(ctx, subject, lo, hi)
		if err != nil {
			return nil, fmt.Errorf("failed to load events: %w", err)
		}
		if len(chunk) == 0 {
			return nil, nil
		}
		if len(lead) == 0 {
			if last := chunk[len(chunk)-1]; last.Type == worktime.SessionEnd && !last.Reason.IsBreak() {
				return nil, nil
			}
		}
		lead = append(append([]worktime.Event(nil), chunk...), lead...)
		for i := len(chunk) - 1; i >= 0; i-- {
			if chunk[i].Type != worktime.SessionStart {
				continue
			}
			tail := lead[i:]
			if _, open := worktime.Reconstruct(tail, from).Current(); !open {
				return nil, nil
			}
			return tail, nil
		}
		hi = lo
	}
	return nil, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayView is a holiday as listed to the user.
type HolidayView struct {
	worktime.Holiday
	Disabled bool
}

// HolidaySet loads the subject's immutable holiday snapshot.
func (s *Service) HolidaySet(ctx context.Context, subject worktime.SubjectID) (worktime.HolidaySet, error) {
	custom, err := s.store.ListHolidays(ctx, subject)
	if err != nil {
		return worktime.HolidaySet{}, fmt.Errorf("failed to load holidays: %w", err)
	}
	disabled, err := s.store.DisabledHolidays(ctx, subject)
	if err != nil {
		return worktime.HolidaySet{}, fmt.Errorf("failed to load disabled holidays: %w", err)
	}
	return worktime.NewHolidaySet(s.calendar, custom, disabled), nil
}

// Holidays lists the public holidays of year (disabled ones flagged) and
// the custom holidays falling in it, sorted by date.
func (s *Service) Holidays(ctx context.Context, subject worktime.SubjectID, year int) ([]HolidayView, error) {
	hs, err := s.HolidaySet(ctx, subject)
	if err != nil {
		return nil, err
	}

	var views []HolidayView
	for _, h := range hs.PublicHolidays(year) {
		views = append(views, HolidayView{Holiday: h, Disabled: hs.IsDisabled(h.ID)})
	}
	for _, h := range hs.Custom() {
		if h.Date.Year == year {
			views = append(views, HolidayView{Holiday: h})
		}
	}
	sortHolidayViews(views)
	return views, nil
}

func sortHolidayViews(views []HolidayView) {
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Date.Before(views[j].Date)
	})
}

// AddHoliday validates and stores a custom holiday.
func (s *Service) AddHoliday(ctx context.Context, subject worktime.SubjectID, date, name string) (worktime.Holiday, error) {
	h, err := worktime.NewCustomHoliday(s.newID(), date, name)
	if err != nil {
		return worktime.Holiday{}, err
	}
	if err := s.store.SaveHoliday(ctx, subject, h); err != nil {
		return worktime.Holiday{}, err
	}

	s.logger.Info().
		Str("subject", string(subject)).
		Str("holiday", h.ID).
		Str("date", h.Date.String()).
		Msg("Custom holiday added")
	return h, nil
}

func (s *Service) DeleteHoliday(ctx context.Context, subject worktime.SubjectID, id string) error {
	return s.store.DeleteHoliday(ctx, subject, id)
}

// SetPublicHolidayEnabled switches a public holiday back to a working day
// (enabled=false) or restores it.
func (s *Service) SetPublicHolidayEnabled(ctx context.Context, subject worktime.SubjectID, id string, enabled bool) error {
	if !s.isPublicHoliday(id) {
		return fmt.Errorf("%w: %s is not a public holiday", worktime.ErrHolidayNotFound, id)
	}
	return s.store.SetHolidayDisabled(ctx, subject, id, !enabled)
}

func (s *Service) isPublicHoliday(id string) bool {
	d, err := worktime.ParseDate(id)
	if err != nil {
		return false
	}
	for _, h := range s.calendar.Holidays(d.Year) {
		if h.ID == id {
			return true
		}
	}
	return false
}

// =============================================================================
// PERIOD CLOSES
// =============================================================================

// PeriodCloses lists the closed months of subject, newest first.
func (s *Service) PeriodCloses(ctx context.Context, subject worktime.SubjectID) ([]worktime.PeriodClose, error) {
	return s.store.ListPeriodCloses(ctx, subject)
}

// ErrPeriodNotOver is returned when closing a month that has not ended.
var ErrPeriodNotOver = errors.New("period has not ended")

// CloseMonth freezes the totals of the month p for subject. It is a no-op
// returning (nil, nil) when the month is already closed.
func (s *Service) CloseMonth(ctx context.Context, subject worktime.SubjectID, p worktime.Period, now time.Time) (*worktime.PeriodClose, error) {
	if !p.End.Before(worktime.DateOf(now, s.Location())) {
		return nil, fmt.Errorf("%w: %s", ErrPeriodNotOver, p)
	}

	closed, err := s.store.IsPeriodClosed(ctx, subject, p)
	if err != nil {
		return nil, fmt.Errorf("failed to check period close: %w", err)
	}
	if closed {
		return nil, nil
	}

	pc := worktime.PeriodClose{
		Subject:   subject,
		Period:    p,
		Status:    worktime.CloseRunning,
		StartedAt: now,
	}
	if err := s.store.SavePeriodClose(ctx, pc); err != nil {
		return nil, fmt.Errorf("failed to save period close: %w", err)
	}

	ms, err := s.Month(ctx, subject, p.Start, now)
	if err != nil {
		pc.Status = worktime.CloseFailed
		pc.Error = err.Error()
		if saveErr := s.store.SavePeriodClose(ctx, pc); saveErr != nil {
			s.logger.Error().Err(saveErr).Str("subject", string(subject)).Msg("Failed to record failed period close")
		}
		metrics.PeriodsClosed.WithLabelValues(string(worktime.CloseFailed)).Inc()
		return nil, err
	}

	completed := now
	pc.Status = worktime.CloseCompleted
	pc.WorkedMinutes = ms.WorkedMinutes
	pc.BreakMinutes = ms.BreakMinutes
	pc.RequiredMinutes = ms.RequiredMinutes
	pc.BalanceMinutes = ms.BalanceMinutes
	pc.CompletedAt = &completed
	if err := s.store.SavePeriodClose(ctx, pc); err != nil {
		return nil, fmt.Errorf("failed to save period close: %w", err)
	}
	metrics.PeriodsClosed.WithLabelValues(string(worktime.CloseCompleted)).Inc()

	s.logger.Info().
		Str("subject", string(subject)).
		Str("period", p.String()).
		Int("balance_minutes", pc.BalanceMinutes).
		Msg("Period closed")
	return &pc, nil
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
