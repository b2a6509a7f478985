/*
Package worktime provides the time accounting engine.

PURPOSE:

	This package turns a raw log of arrive/leave/break events into work and
	break intervals, decides how many minutes each calendar day requires,
	and derives daily and monthly balances, including a session that is
	still running. Everything here is a pure computation over its inputs:
	no I/O, no clock reads, no goroutines.

KEY CONCEPTS IN THIS FILE (types.go):
  - Event: A punctual SESSION_START / SESSION_END with an optional reason
  - Interval: A contiguous WORK or BREAK span, open when End is nil
  - Session: Already-paired input (manual entry) with nested breaks
  - Subject/Event IDs: Type-safe identifiers

DESIGN PRINCIPLES:
 1. Explicit time: every function that needs "now" takes it as a parameter
 2. Closed enumerations: event types and reasons are parsed once at the
    boundary, never compared as free-form strings inside the engine
 3. Seconds internally, whole minutes at the boundary
 4. Tolerant input: malformed sequences produce Diagnostics, not errors

USAGE:

	rec := worktime.Reconstruct(events, now)
	worked := worktime.WorkedSeconds(rec.Intervals, worktime.DayPeriod(today), loc, now)

SEE ALSO:
  - intervals.go: Interval reconstruction state machine
  - aggregate.go: Duration sums per day/week/month
  - balance.go: Daily and monthly balances
  - calendar.go: Required minutes per day
*/
package worktime

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SubjectID string
type EventID string

// =============================================================================
// EVENT TYPE
// =============================================================================

// EventType is the kind of a punctual event.
type EventType int

const (
	SessionStart EventType = iota + 1
	SessionEnd
)

func (t EventType) String() string {
	switch t {
	case SessionStart:
		return "start"
	case SessionEnd:
		return "end"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// ParseEventType parses "start" / "end" (case-insensitive, with or without
// a "session_" prefix).
func ParseEventType(s string) (EventType, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "session_") {
	case "start":
		return SessionStart, nil
	case "end":
		return SessionEnd, nil
	}
	return 0, &ValidationError{Field: "type", Message: fmt.Sprintf("unknown event type %q", s), Err: ErrInvalidEvent}
}

func (t EventType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *EventType) UnmarshalText(b []byte) error {
	v, err := ParseEventType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// =============================================================================
// REASON
// =============================================================================

// Reason tags a SESSION_END. Break reasons open a BREAK interval.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonLunch
	ReasonShortBreak
	ReasonEndOfDay
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return ""
	case ReasonLunch:
		return "lunch"
	case ReasonShortBreak:
		return "short_break"
	case ReasonEndOfDay:
		return "end_of_day"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// IsBreak reports whether ending a session with this reason starts a break.
func (r Reason) IsBreak() bool {
	return r == ReasonLunch || r == ReasonShortBreak
}

// ParseReason accepts the canonical names plus the short forms used by
// older clients ("short", "short-break", "eod").
func ParseReason(s string) (Reason, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", "none":
		return ReasonNone, nil
	case "lunch":
		return ReasonLunch, nil
	case "short_break", "short", "break":
		return ReasonShortBreak, nil
	case "end_of_day", "eod":
		return ReasonEndOfDay, nil
	}
	return ReasonNone, &ValidationError{Field: "reason", Message: fmt.Sprintf("unknown reason %q", s), Err: ErrInvalidEvent}
}

func (r Reason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Reason) UnmarshalText(b []byte) error {
	v, err := ParseReason(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// =============================================================================
// EVENT
// =============================================================================

// Event is one punctual entry in a subject's log.
// Seq is the insertion order and breaks ties between equal timestamps.
type Event struct {
	ID      EventID
	Subject SubjectID
	Type    EventType
	At      time.Time
	Reason  Reason
	Seq     int64
}

// Validate checks the closed enumerations and the timestamp.
func (e Event) Validate() error {
	if e.Type != SessionStart && e.Type != SessionEnd {
		return &ValidationError{Field: "type", Message: "missing event type", Err: ErrInvalidEvent}
	}
	if e.At.IsZero() {
		return &ValidationError{Field: "at", Message: "missing timestamp", Err: ErrInvalidEvent}
	}
	if e.Type == SessionStart && e.Reason != ReasonNone {
		return &ValidationError{Field: "reason", Message: "start events carry no reason", Err: ErrInvalidEvent}
	}
	if e.Reason < ReasonNone || e.Reason > ReasonEndOfDay {
		return &ValidationError{Field: "reason", Message: "unknown reason", Err: ErrInvalidEvent}
	}
	return nil
}

// =============================================================================
// INTERVAL
// =============================================================================

type IntervalKind int

const (
	KindWork IntervalKind = iota + 1
	KindBreak
)

func (k IntervalKind) String() string {
	switch k {
	case KindWork:
		return "work"
	case KindBreak:
		return "break"
	default:
		return fmt.Sprintf("IntervalKind(%d)", int(k))
	}
}

func (k IntervalKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Interval is a contiguous WORK or BREAK span. End == nil means open.
type Interval struct {
	Kind   IntervalKind
	Start  time.Time
	End    *time.Time
	Reason Reason // break reason, ReasonNone for work
}

// Open reports whether the interval has no recorded end.
func (iv Interval) Open() bool { return iv.End == nil }

// EffectiveEnd is End, or now for an open interval. Never stored.
func (iv Interval) EffectiveEnd(now time.Time) time.Time {
	if iv.End == nil {
		return now
	}
	return *iv.End
}

// Duration returns the length of the interval as of now.
// A closed interval whose end precedes its start is a cross-midnight pair
// and gets 24h added. An open interval is clamped at zero when now is
// before its start.
func (iv Interval) Duration(now time.Time) time.Duration {
	if iv.End == nil {
		if d := now.Sub(iv.Start); d > 0 {
			return d
		}
		return 0
	}
	d := iv.End.Sub(iv.Start)
	if d < 0 {
		d += 24 * time.Hour
	}
	if d < 0 {
		return 0
	}
	return d
}

// =============================================================================
// SESSION - already-paired input
// =============================================================================

// Session is a manually entered work session with nested breaks.
type Session struct {
	ID     string
	Start  time.Time
	End    *time.Time
	Breaks []Break
}

type Break struct {
	Start  time.Time
	End    *time.Time
	Reason Reason
}

func timePtr(t time.Time) *time.Time { return &t }
