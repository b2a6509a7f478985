/*
Package sqlite provides a SQLite-backed implementation of worktime.Store.

PURPOSE:

	Persists session events, custom holidays, disabled public holidays and
	month-close records. The engine never touches this package; the tracker
	service loads one snapshot per request and hands plain values over.

INTERFACES IMPLEMENTED:

	worktime.EventStore:   Session start/end events
	worktime.HolidayStore: Per-subject holiday configuration
	worktime.PeriodStore:  Month-close records

EVENT ORDER:

	events.seq is an AUTOINCREMENT rowid, so it only grows and doubles as the
	tie-breaker for equal timestamps. Instants are stored as UTC Unix
	nanoseconds (at_ns) so that ORDER BY and range filters are numeric.

KEY TABLES:

	events:            Punctual session events (deletable)
	holidays:          Custom holidays per subject
	disabled_holidays: Public holiday IDs switched off per subject
	period_closes:     One row per (subject, month) written by the scheduler

CONCURRENCY:

	Uses sync.RWMutex for thread-safety on top of WAL mode.

USAGE:

	store, err := sqlite.New("./data/worktime.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	svc := tracker.New(store, ...)

SEE ALSO:
  - worktime/store.go: Interface definitions
  - worktime/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/worktime/worktime"
)

// Store implements worktime.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ worktime.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection (used by /healthz).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Session events
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		subject TEXT NOT NULL,
		event_type TEXT NOT NULL,
		at_ns INTEGER NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_subject_at
		ON events(subject, at_ns, seq);

	-- Custom holidays
	CREATE TABLE IF NOT EXISTS holidays (
		subject TEXT NOT NULL,
		id TEXT NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (subject, id)
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_subject_date
		ON holidays(subject, date);

	-- Public holidays switched off
	CREATE TABLE IF NOT EXISTS disabled_holidays (
		subject TEXT NOT NULL,
		holiday_id TEXT NOT NULL,
		PRIMARY KEY (subject, holiday_id)
	);

	-- Month-close records
	CREATE TABLE IF NOT EXISTS period_closes (
		subject TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL,
		worked_minutes INTEGER NOT NULL DEFAULT 0,
		break_minutes INTEGER NOT NULL DEFAULT 0,
		required_minutes INTEGER NOT NULL DEFAULT 0,
		balance_minutes INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		PRIMARY KEY (subject, period_start)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EVENT STORE (worktime.EventStore interface)
// =============================================================================

// AppendEvent inserts e; Seq comes from the rowid.
func (s *Store) AppendEvent(ctx context.Context, e worktime.Event) (worktime.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO events (id, subject, event_type, at_ns, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		string(e.ID),
		string(e.Subject),
		e.Type.String(),
		e.At.UTC().UnixNano(),
		nullString(e.Reason.String()),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return worktime.Event{}, worktime.ErrDuplicateEvent
		}
		return worktime.Event{}, fmt.Errorf("failed to append event: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return worktime.Event{}, fmt.Errorf("failed to read event seq: %w", err)
	}
	e.Seq = seq
	e.At = e.At.UTC()
	return e, nil
}

func (s *Store) DeleteEvent(ctx context.Context, subject worktime.SubjectID, id worktime.EventID) (worktime.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, subject, event_type, at_ns, reason
		FROM events
		WHERE subject = ? AND id = ?
	`, string(subject), string(id))

	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return worktime.Event{}, worktime.ErrEventNotFound
	}
	if err != nil {
		return worktime.Event{}, err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE seq = ?", e.Seq); err != nil {
		return worktime.Event{}, fmt.Errorf("failed to delete event: %w", err)
	}
	return e, nil
}

// LoadEvents returns events with from <= At < to, ordered by (At, Seq).
func (s *Store) LoadEvents(ctx context.Context, subject worktime.SubjectID, from, to time.Time) ([]worktime.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT seq, id, subject, event_type, at_ns, reason
		FROM events
		WHERE subject = ?`
	args := []any{string(subject)}
	if !from.IsZero() {
		query += " AND at_ns >= ?"
		args = append(args, from.UTC().UnixNano())
	}
	if !to.IsZero() {
		query += " AND at_ns < ?"
		args = append(args, to.UTC().UnixNano())
	}
	query += " ORDER BY at_ns ASC, seq ASC"

	return s.queryEvents(ctx, query, args...)
}

func (s *Store) LastEvent(ctx context.Context, subject worktime.SubjectID) (*worktime.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, subject, event_type, at_ns, reason
		FROM events
		WHERE subject = ?
		ORDER BY at_ns DESC, seq DESC
		LIMIT 1
	`, string(subject))

	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListSubjects(ctx context.Context) ([]worktime.SubjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT subject FROM events ORDER BY subject")
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []worktime.SubjectID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		subjects = append(subjects, worktime.SubjectID(id))
	}
	return subjects, rows.Err()
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]worktime.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []worktime.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (worktime.Event, error) {
	var (
		e         worktime.Event
		id        string
		subject   string
		eventType string
		atNs      int64
		reason    sql.NullString
	)

	if err := row.Scan(&e.Seq, &id, &subject, &eventType, &atNs, &reason); err != nil {
		if err == sql.ErrNoRows {
			return e, err
		}
		return e, fmt.Errorf("failed to scan event: %w", err)
	}

	t, err := worktime.ParseEventType(eventType)
	if err != nil {
		return e, fmt.Errorf("event %s: %w", id, err)
	}
	r, err := worktime.ParseReason(reason.String)
	if err != nil {
		return e, fmt.Errorf("event %s: %w", id, err)
	}

	e.ID = worktime.EventID(id)
	e.Subject = worktime.SubjectID(subject)
	e.Type = t
	e.At = time.Unix(0, atNs).UTC()
	e.Reason = r
	return e, nil
}

// =============================================================================
// HOLIDAY STORE (worktime.HolidayStore interface)
// =============================================================================

// SaveHoliday inserts or replaces a custom holiday by ID.
func (s *Store) SaveHoliday(ctx context.Context, subject worktime.SubjectID, h worktime.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (subject, id, date, name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(subject, id) DO UPDATE SET
			date = excluded.date,
			name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query,
		string(subject), h.ID, h.Date.String(), h.Name,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

func (s *Store) DeleteHoliday(ctx context.Context, subject worktime.SubjectID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE subject = ? AND id = ?", string(subject), id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return worktime.ErrHolidayNotFound
	}
	return nil
}

func (s *Store) ListHolidays(ctx context.Context, subject worktime.SubjectID) ([]worktime.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, name FROM holidays
		WHERE subject = ?
		ORDER BY date ASC, created_at ASC
	`, string(subject))
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	holidays := []worktime.Holiday{}
	for rows.Next() {
		var h worktime.Holiday
		var date string
		if err := rows.Scan(&h.ID, &date, &h.Name); err != nil {
			return nil, err
		}
		d, err := worktime.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("holiday %s: %w", h.ID, err)
		}
		h.Date = d
		h.Origin = worktime.OriginCustom
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *Store) SetHolidayDisabled(ctx context.Context, subject worktime.SubjectID, id string, disabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if disabled {
		_, err = s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO disabled_holidays (subject, holiday_id) VALUES (?, ?)",
			string(subject), id)
	} else {
		_, err = s.db.ExecContext(ctx,
			"DELETE FROM disabled_holidays WHERE subject = ? AND holiday_id = ?",
			string(subject), id)
	}
	if err != nil {
		return fmt.Errorf("failed to toggle holiday: %w", err)
	}
	return nil
}

func (s *Store) DisabledHolidays(ctx context.Context, subject worktime.SubjectID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT holiday_id FROM disabled_holidays WHERE subject = ? ORDER BY holiday_id",
		string(subject))
	if err != nil {
		return nil, fmt.Errorf("failed to list disabled holidays: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// PERIOD STORE (worktime.PeriodStore interface)
// =============================================================================

// SavePeriodClose upserts the record for (subject, month).
func (s *Store) SavePeriodClose(ctx context.Context, pc worktime.PeriodClose) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO period_closes (subject, period_start, period_end, status,
			worked_minutes, break_minutes, required_minutes, balance_minutes,
			error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject, period_start) DO UPDATE SET
			period_end = excluded.period_end,
			status = excluded.status,
			worked_minutes = excluded.worked_minutes,
			break_minutes = excluded.break_minutes,
			required_minutes = excluded.required_minutes,
			balance_minutes = excluded.balance_minutes,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	var completedAt *string
	if pc.CompletedAt != nil {
		s := pc.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &s
	}

	_, err := s.db.ExecContext(ctx, query,
		string(pc.Subject), pc.Period.Start.String(), pc.Period.End.String(), string(pc.Status),
		pc.WorkedMinutes, pc.BreakMinutes, pc.RequiredMinutes, pc.BalanceMinutes,
		nullString(pc.Error), pc.StartedAt.UTC().Format(time.RFC3339), completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save period close: %w", err)
	}
	return nil
}

// IsPeriodClosed checks if a month has already been closed.
func (s *Store) IsPeriodClosed(ctx context.Context, subject worktime.SubjectID, p worktime.Period) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM period_closes
		WHERE subject = ? AND period_start = ? AND status = ?
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, string(subject), p.Start.String(), string(worktime.CloseCompleted)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListPeriodCloses(ctx context.Context, subject worktime.SubjectID) ([]worktime.PeriodClose, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, period_start, period_end, status,
			worked_minutes, break_minutes, required_minutes, balance_minutes,
			error, started_at, completed_at
		FROM period_closes
		WHERE subject = ?
		ORDER BY period_start DESC
	`, string(subject))
	if err != nil {
		return nil, fmt.Errorf("failed to list period closes: %w", err)
	}
	defer rows.Close()

	closes := []worktime.PeriodClose{}
	for rows.Next() {
		var (
			pc                   worktime.PeriodClose
			subj, start, end, st string
			errText, completedAt sql.NullString
			startedAt            string
		)
		if err := rows.Scan(&subj, &start, &end, &st,
			&pc.WorkedMinutes, &pc.BreakMinutes, &pc.RequiredMinutes, &pc.BalanceMinutes,
			&errText, &startedAt, &completedAt,
		); err != nil {
			return nil, err
		}

		pc.Subject = worktime.SubjectID(subj)
		pc.Period.Start, _ = worktime.ParseDate(start)
		pc.Period.End, _ = worktime.ParseDate(end)
		pc.Status = worktime.CloseStatus(st)
		pc.Error = errText.String
		pc.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			pc.CompletedAt = &t
		}

		closes = append(closes, pc)
	}
	return closes, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
