/*
intervals.go - Interval reconstruction from a punctual event log

PURPOSE:

	Converts SESSION_START / SESSION_END events into WORK and BREAK
	intervals. A trailing START (or a break nobody came back from) stays
	open; its effective end is "now" at aggregation time and is never
	written back.

STATE MACHINE:

	state     START                         END(lunch|short_break)          END(end_of_day|none)
	-------   ---------------------------   -----------------------------   --------------------
	idle      open WORK                     dangling_end, ignored           dangling_end, ignored
	working   double_start: drop open WORK, close WORK, open BREAK           close WORK
	          open WORK                     at the same instant
	break     close BREAK, open WORK        end_during_break: drop BREAK,   end_during_break:
	                                        open BREAK                      drop BREAK

	The later event is always authoritative. Repairs are reported as
	Diagnostics and never abort reconstruction.

ORDERING:

	Input need not be sorted. A copy is sorted by (At, Seq, ID).

INVARIANT:

	Intervals from one event stream never overlap, and a WORK interval ends
	exactly where the following BREAK begins.

SEE ALSO:
  - aggregate.go: Sums the resulting intervals
  - types.go: Interval.Duration (cross-midnight correction, clamping)
*/
package worktime

import (
	"sort"
	"time"
)

// Reconstruction is the result of scanning one event log.
type Reconstruction struct {
	Intervals   []Interval
	Diagnostics []Diagnostic
	Now         time.Time
}

// Current returns the open interval at the end of the log, if any.
func (r Reconstruction) Current() (Interval, bool) {
	if n := len(r.Intervals); n > 0 && r.Intervals[n-1].Open() {
		return r.Intervals[n-1], true
	}
	return Interval{}, false
}

// Working reports whether a WORK interval is open.
func (r Reconstruction) Working() bool {
	iv, ok := r.Current()
	return ok && iv.Kind == KindWork
}

// OnBreak reports whether a BREAK interval is open.
func (r Reconstruction) OnBreak() bool {
	iv, ok := r.Current()
	return ok && iv.Kind == KindBreak
}

// SortEvents returns a copy of events ordered by timestamp, then insertion
// sequence, then ID.
func SortEvents(events []Event) []Event {
	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.ID < b.ID
	})
	return sorted
}

type scanState int

const (
	stateIdle scanState = iota
	stateWorking
	stateOnBreak
)

// Reconstruct scans events and returns the intervals they describe.
// now is recorded on the result for callers that aggregate later; open
// intervals keep End == nil.
func Reconstruct(events []Event, now time.Time) Reconstruction {
	rec := Reconstruction{Now: now}

	var (
		state     = stateIdle
		openStart time.Time
		openWhy   Reason
	)

	diag := func(code DiagnosticCode, e Event, msg string) {
		rec.Diagnostics = append(rec.Diagnostics, Diagnostic{Code: code, EventID: e.ID, At: e.At, Message: msg})
	}
	closeOpen := func(kind IntervalKind, end time.Time) {
		rec.Intervals = append(rec.Intervals, Interval{
			Kind:   kind,
			Start:  openStart,
			End:    timePtr(end),
			Reason: openWhy,
		})
	}

	for _, e := range SortEvents(events) {
		switch e.Type {
		case SessionStart:
			switch state {
			case stateWorking:
				diag(DiagDoubleStart, e, "start while already working; previous start discarded")
			case stateOnBreak:
				closeOpen(KindBreak, e.At)
			}
			state, openStart, openWhy = stateWorking, e.At, ReasonNone

		case SessionEnd:
			switch state {
			case stateIdle:
				diag(DiagDanglingEnd, e, "end without an open session; ignored")
				continue
			case stateWorking:
				closeOpen(KindWork, e.At)
			case stateOnBreak:
				diag(DiagEndDuringBreak, e, "end while on break; open break discarded")
			}
			if e.Reason.IsBreak() {
				state, openStart, openWhy = stateOnBreak, e.At, e.Reason
			} else {
				state = stateIdle
			}
		}
	}

	switch state {
	case stateWorking:
		rec.Intervals = append(rec.Intervals, Interval{Kind: KindWork, Start: openStart})
	case stateOnBreak:
		rec.Intervals = append(rec.Intervals, Interval{Kind: KindBreak, Start: openStart, Reason: openWhy})
	}
	return rec
}

// =============================================================================
// SESSIONS - already-paired input
// =============================================================================

// SessionIntervals splits manually entered sessions into WORK and BREAK
// intervals.
//
// A session end before its start is a cross-midnight entry and gets +24h;
// break bounds before the session start are shifted the same way. An open
// break ends at the session end, or stays open when the session is open.
// Breaks are clipped to the session and to each other.
func SessionIntervals(sessions []Session) []Interval {
	var out []Interval
	for _, s := range sessions {
		out = append(out, sessionIntervals(s)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func sessionIntervals(s Session) []Interval {
	start := s.Start
	var end *time.Time
	if s.End != nil {
		e := *s.End
		if e.Before(start) {
			e = e.Add(24 * time.Hour)
		}
		end = &e
	}

	breaks := make([]Break, 0, len(s.Breaks))
	for _, b := range s.Breaks {
		bs := b.Start
		if bs.Before(start) {
			bs = bs.Add(24 * time.Hour)
		}
		nb := Break{Start: bs, Reason: b.Reason}
		if b.End != nil {
			be := *b.End
			if be.Before(bs) {
				be = be.Add(24 * time.Hour)
			}
			nb.End = &be
		} else if end != nil {
			nb.End = timePtr(*end)
		}
		breaks = append(breaks, nb)
	}
	sort.SliceStable(breaks, func(i, j int) bool { return breaks[i].Start.Before(breaks[j].Start) })

	var out []Interval
	cursor := start
	for _, b := range breaks {
		if end != nil && !b.Start.Before(*end) {
			break
		}
		bs := b.Start
		if bs.Before(cursor) {
			bs = cursor
		}
		if bs.After(cursor) {
			out = append(out, Interval{Kind: KindWork, Start: cursor, End: timePtr(bs)})
		}
		if b.End == nil {
			// session and break both still running
			out = append(out, Interval{Kind: KindBreak, Start: bs, Reason: b.Reason})
			return out
		}
		be := *b.End
		if end != nil && be.After(*end) {
			be = *end
		}
		if be.After(bs) {
			out = append(out, Interval{Kind: KindBreak, Start: bs, End: timePtr(be), Reason: b.Reason})
			cursor = be
		}
	}

	if end == nil {
		out = append(out, Interval{Kind: KindWork, Start: cursor})
	} else if end.After(cursor) {
		out = append(out, Interval{Kind: KindWork, Start: cursor, End: timePtr(*end)})
	}
	return out
}

// MergeIntervals combines reconstructed and session intervals in start order.
func MergeIntervals(sets ...[]Interval) []Interval {
	var out []Interval
	for _, s := range sets {
		out = append(out, s...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
