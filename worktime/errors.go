/*
errors.go - Centralized error and diagnostic types for the engine

PURPOSE:

	All error types in one place for consistency and discoverability.
	Two very different things live here:

	1. Errors: returned at the configuration/storage boundary when input
	   must be rejected (bad date, unknown reason, missing event).
	2. Diagnostics: values attached to a Reconstruction when the event log
	   is malformed. They never abort a computation; a balance is always
	   produced.

USAGE:

	if errors.Is(err, worktime.ErrInvalidHoliday) {
	    // 400
	}

SEE ALSO:
  - intervals.go: Emits diagnostics
  - store.go: Store implementations return the not-found sentinels
*/
package worktime

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEventNotFound is returned when deleting or reading an unknown event.
	ErrEventNotFound = errors.New("event not found")

	// ErrHolidayNotFound is returned when an unknown custom holiday is referenced.
	ErrHolidayNotFound = errors.New("holiday not found")

	// ErrDuplicateEvent is returned when an event ID already exists.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrInvalidEvent is returned when an event fails boundary validation.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidDate is returned when a date string fails to parse.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidHoliday is returned when a holiday is rejected at the boundary.
	ErrInvalidHoliday = errors.New("invalid holiday")

	// ErrInvalidRules is returned when a rule set is inconsistent.
	ErrInvalidRules = errors.New("invalid rules")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field. Err is one of the sentinels.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Message)
	}
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// =============================================================================
// DIAGNOSTICS - non-fatal data quality findings
// =============================================================================

type DiagnosticCode string

const (
	// DiagDoubleStart: a START arrived while WORK was already open.
	// The earlier open WORK is discarded.
	DiagDoubleStart DiagnosticCode = "double_start"

	// DiagDanglingEnd: an END arrived with nothing open. Ignored.
	DiagDanglingEnd DiagnosticCode = "dangling_end"

	// DiagEndDuringBreak: an END arrived while a BREAK was open.
	// The open BREAK is discarded.
	DiagEndDuringBreak DiagnosticCode = "end_during_break"
)

// Diagnostic describes one repaired inconsistency in an event log.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	EventID EventID        `json:"event_id,omitempty"`
	At      time.Time      `json:"at"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at %s (event %s): %s", d.Code, d.At.Format(time.RFC3339), d.EventID, d.Message)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidEvent) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidHoliday) ||
		errors.Is(err, ErrInvalidRules) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrHolidayNotFound)
}

// IsConflict returns true if the error indicates a duplicate write.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateEvent)
}
