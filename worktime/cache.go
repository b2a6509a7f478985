package worktime

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// DAY CACHE - completed-day totals
// =============================================================================
//
// A completed day (strictly before today, no open interval starting on it)
// never changes unless its events are edited. The cache stores its worked
// and break seconds per (subject, date). Callers must invalidate a subject's
// entries when they delete or backdate events.

type dayKey struct {
	Subject SubjectID
	Date    Date
}

// DayCache is an LRU of completed-day totals. Safe for concurrent use.
type DayCache struct {
	entries *lru.Cache[dayKey, DayTotals]

	// OnLookup, when set, is called after every Get with the hit result.
	OnLookup func(hit bool)
}

// NewDayCache creates a cache holding at most size days.
func NewDayCache(size int) (*DayCache, error) {
	entries, err := lru.New[dayKey, DayTotals](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create day cache: %w", err)
	}
	return &DayCache{entries: entries}, nil
}

func (c *DayCache) Get(subject SubjectID, d Date) (DayTotals, bool) {
	t, ok := c.entries.Get(dayKey{Subject: subject, Date: d})
	if c.OnLookup != nil {
		c.OnLookup(ok)
	}
	return t, ok
}

func (c *DayCache) Put(subject SubjectID, d Date, t DayTotals) {
	c.entries.Add(dayKey{Subject: subject, Date: d}, t)
}

// Invalidate drops d and the day before it. An event on d can close or
// discard an interval that started the previous evening.
func (c *DayCache) Invalidate(subject SubjectID, d Date) {
	c.entries.Remove(dayKey{Subject: subject, Date: d})
	c.entries.Remove(dayKey{Subject: subject, Date: d.AddDays(-1)})
}

// InvalidateSubject drops every cached day of subject.
func (c *DayCache) InvalidateSubject(subject SubjectID) {
	for _, k := range c.entries.Keys() {
		if k.Subject == subject {
			c.entries.Remove(k)
		}
	}
}

func (c *DayCache) Len() int { return c.entries.Len() }

// =============================================================================
// CALCULATOR - ComputeBalance backed by a DayCache
// =============================================================================

// Calculator computes balances, reusing cached completed days.
// A nil Cache behaves exactly like ComputeBalance.
type Calculator struct {
	Cache *DayCache
}

func NewCalculator(cache *DayCache) *Calculator {
	return &Calculator{Cache: cache}
}

// Balance computes the snapshot for subject.
func (c *Calculator) Balance(subject SubjectID, in BalanceInput) BalanceSnapshot {
	if c == nil || c.Cache == nil {
		return ComputeBalance(in)
	}
	return computeBalance(in, func(d Date, computed DayTotals, complete bool) DayTotals {
		if cached, ok := c.Cache.Get(subject, d); ok {
			return cached
		}
		if complete {
			c.Cache.Put(subject, d, computed)
		}
		return computed
	})
}
