// Package store provides in-memory worktime.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/worktime/worktime"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	events   map[worktime.SubjectID][]worktime.Event
	ids      map[worktime.EventID]worktime.SubjectID
	holidays map[worktime.SubjectID][]worktime.Holiday
	disabled map[worktime.SubjectID]map[string]bool
	closes   map[worktime.SubjectID]map[worktime.Date]worktime.PeriodClose
	seq      int64
}

func NewMemory() *Memory {
	return &Memory{
		events:   make(map[worktime.SubjectID][]worktime.Event),
		ids:      make(map[worktime.EventID]worktime.SubjectID),
		holidays: make(map[worktime.SubjectID][]worktime.Holiday),
		disabled: make(map[worktime.SubjectID]map[string]bool),
		closes:   make(map[worktime.SubjectID]map[worktime.Date]worktime.PeriodClose),
	}
}

var _ worktime.Store = (*Memory)(nil)

// AppendEvent assigns the next sequence number and inserts in (At, Seq) order.
func (m *Memory) AppendEvent(_ context.Context, e worktime.Event) (worktime.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.ids[e.ID]; exists {
		return worktime.Event{}, worktime.ErrDuplicateEvent
	}
	m.seq++
	e.Seq = m.seq

	evs := m.events[e.Subject]

	// Binary search for insertion point: events with the same At keep
	// insertion order because Seq only grows.
	i := sort.Search(len(evs), func(i int) bool {
		return evs[i].At.After(e.At)
	})
	evs = append(evs, worktime.Event{})
	copy(evs[i+1:], evs[i:])
	evs[i] = e
	m.events[e.Subject] = evs
	m.ids[e.ID] = e.Subject
	return e, nil
}

func (m *Memory) DeleteEvent(_ context.Context, subject worktime.SubjectID, id worktime.EventID) (worktime.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	evs := m.events[subject]
	for i, e := range evs {
		if e.ID == id {
			m.events[subject] = append(evs[:i:i], evs[i+1:]...)
			delete(m.ids, id)
			return e, nil
		}
	}
	return worktime.Event{}, worktime.ErrEventNotFound
}

func (m *Memory) LoadEvents(_ context.Context, subject worktime.SubjectID, from, to time.Time) ([]worktime.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []worktime.Event
	for _, e := range m.events[subject] {
		if !from.IsZero() && e.At.Before(from) {
			continue
		}
		if !to.IsZero() && !e.At.Before(to) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (m *Memory) LastEvent(_ context.Context, subject worktime.SubjectID) (*worktime.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	evs := m.events[subject]
	if len(evs) == 0 {
		return nil, nil
	}
	e := evs[len(evs)-1]
	return &e, nil
}

func (m *Memory) ListSubjects(_ context.Context) ([]worktime.SubjectID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subjects := make([]worktime.SubjectID, 0, len(m.events))
	for s, evs := range m.events {
		if len(evs) > 0 {
			subjects = append(subjects, s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i] < subjects[j] })
	return subjects, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// SaveHoliday inserts or replaces a custom holiday by ID.
func (m *Memory) SaveHoliday(_ context.Context, subject worktime.SubjectID, h worktime.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hs := m.holidays[subject]
	for i := range hs {
		if hs[i].ID == h.ID {
			hs[i] = h
			return nil
		}
	}
	m.holidays[subject] = append(hs, h)
	return nil
}

func (m *Memory) DeleteHoliday(_ context.Context, subject worktime.SubjectID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hs := m.holidays[subject]
	for i := range hs {
		if hs[i].ID == id {
			m.holidays[subject] = append(hs[:i:i], hs[i+1:]...)
			return nil
		}
	}
	return worktime.ErrHolidayNotFound
}

func (m *Memory) ListHolidays(_ context.Context, subject worktime.SubjectID) ([]worktime.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]worktime.Holiday, len(m.holidays[subject]))
	copy(result, m.holidays[subject])
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) SetHolidayDisabled(_ context.Context, subject worktime.SubjectID, id string, disabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.disabled[subject]
	if set == nil {
		set = make(map[string]bool)
		m.disabled[subject] = set
	}
	if disabled {
		set[id] = true
	} else {
		delete(set, id)
	}
	return nil
}

func (m *Memory) DisabledHolidays(_ context.Context, subject worktime.SubjectID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.disabled[subject]))
	for id := range m.disabled[subject] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// =============================================================================
// PERIOD CLOSES
// =============================================================================

func (m *Memory) SavePeriodClose(_ context.Context, pc worktime.PeriodClose) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byStart := m.closes[pc.Subject]
	if byStart == nil {
		byStart = make(map[worktime.Date]worktime.PeriodClose)
		m.closes[pc.Subject] = byStart
	}
	byStart[pc.Period.Start] = pc
	return nil
}

func (m *Memory) IsPeriodClosed(_ context.Context, subject worktime.SubjectID, p worktime.Period) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pc, ok := m.closes[subject][p.Start]
	return ok && pc.Status == worktime.CloseCompleted, nil
}

func (m *Memory) ListPeriodCloses(_ context.Context, subject worktime.SubjectID) ([]worktime.PeriodClose, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]worktime.PeriodClose, 0, len(m.closes[subject]))
	for _, pc := range m.closes[subject] {
		result = append(result, pc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Period.Start.After(result[j].Period.Start) })
	return result, nil
}
