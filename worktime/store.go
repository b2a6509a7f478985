/*
store.go - Persistence interfaces for events and holiday configuration

PURPOSE:

	Defines the interface between the service layer and the database. The
	engine never calls these; the service loads one consistent snapshot
	(events + holidays) and hands plain values to ComputeBalance.

KEY INTERFACES:

	EventStore:   Append/delete/load punctual events per subject
	HolidayStore: Custom holidays and disabled public holidays per subject
	PeriodStore:  Month-close records written by the scheduler

EVENT ORDER:

	LoadEvents returns events ordered by (At, Seq). Seq is assigned by the
	store on append and is the tie-breaker for equal timestamps.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - worktime/store/memory.go: In-memory for tests and the CLI

SEE ALSO:
  - tracker/tracker.go: The service that uses both stores
*/
package worktime

import (
	"context"
	"time"
)

// =============================================================================
// EVENT STORE
// =============================================================================

type EventStore interface {
	// AppendEvent persists e and returns it with Seq assigned.
	// Returns ErrDuplicateEvent if the ID exists.
	AppendEvent(ctx context.Context, e Event) (Event, error)

	// DeleteEvent removes an event. Returns ErrEventNotFound if absent.
	DeleteEvent(ctx context.Context, subject SubjectID, id EventID) (Event, error)

	// LoadEvents returns the events of subject with from <= At < to,
	// ordered by (At, Seq). A zero bound is open.
	LoadEvents(ctx context.Context, subject SubjectID, from, to time.Time) ([]Event, error)

	// LastEvent returns the most recent event of subject, if any.
	LastEvent(ctx context.Context, subject SubjectID) (*Event, error)

	// ListSubjects returns every subject that has at least one event.
	ListSubjects(ctx context.Context) ([]SubjectID, error)
}

// =============================================================================
// HOLIDAY STORE
// =============================================================================

type HolidayStore interface {
	SaveHoliday(ctx context.Context, subject SubjectID, h Holiday) error

	// DeleteHoliday removes a custom holiday. Returns ErrHolidayNotFound if absent.
	DeleteHoliday(ctx context.Context, subject SubjectID, id string) error

	ListHolidays(ctx context.Context, subject SubjectID) ([]Holiday, error)

	// SetHolidayDisabled toggles a public holiday off (true) or back on.
	SetHolidayDisabled(ctx context.Context, subject SubjectID, id string, disabled bool) error

	DisabledHolidays(ctx context.Context, subject SubjectID) ([]string, error)
}

// =============================================================================
// PERIOD STORE
// =============================================================================

// CloseStatus tracks a month-close run.
type CloseStatus string

const (
	CloseRunning   CloseStatus = "running"
	CloseCompleted CloseStatus = "completed"
	CloseFailed    CloseStatus = "failed"
)

// PeriodClose freezes the totals of one subject's finished month.
type PeriodClose struct {
	Subject         SubjectID   `json:"subject"`
	Period          Period      `json:"period"`
	Status          CloseStatus `json:"status"`
	WorkedMinutes   int         `json:"worked_minutes"`
	BreakMinutes    int         `json:"break_minutes"`
	RequiredMinutes int         `json:"required_minutes"`
	BalanceMinutes  int         `json:"balance_minutes"`
	Error           string      `json:"error,omitempty"`
	StartedAt       time.Time   `json:"started_at"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
}

type PeriodStore interface {
	// SavePeriodClose inserts or updates the record keyed by (Subject, Period.Start).
	SavePeriodClose(ctx context.Context, pc PeriodClose) error

	// IsPeriodClosed reports whether a completed record exists.
	IsPeriodClosed(ctx context.Context, subject SubjectID, p Period) (bool, error)

	// ListPeriodCloses returns the records of subject, newest period first.
	ListPeriodCloses(ctx context.Context, subject SubjectID) ([]PeriodClose, error)
}

// Store is all three.
type Store interface {
	EventStore
	HolidayStore
	PeriodStore
}
