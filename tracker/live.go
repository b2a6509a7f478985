package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/worktime/metrics"
	"github.com/warp/worktime/worktime"
)

// =============================================================================
// LIVE CLOCK - Periodic recomputation for one subject
// =============================================================================

// ComputeFunc produces the snapshot at now.
type ComputeFunc func(ctx context.Context, now time.Time) (worktime.BalanceSnapshot, error)

// LiveClock recomputes a snapshot on every tick and publishes it to its
// subscribers. A slow subscriber only ever sees the latest snapshot.
type LiveClock struct {
	interval time.Duration
	clock    worktime.Clock
	compute  ComputeFunc
	logger   zerolog.Logger

	mu     sync.Mutex
	subs   map[int]chan worktime.BalanceSnapshot
	nextID int
}

func NewLiveClock(interval time.Duration, clock worktime.Clock, compute ComputeFunc, logger zerolog.Logger) *LiveClock {
	if interval <= 0 {
		interval = time.Second
	}
	if clock == nil {
		clock = worktime.SystemClock{}
	}
	return &LiveClock{
		interval: interval,
		clock:    clock,
		compute:  compute,
		logger:   logger,
		subs:     make(map[int]chan worktime.BalanceSnapshot),
	}
}

// Subscribe registers a subscriber until ctx is canceled, at which point
// the returned channel is closed.
func (lc *LiveClock) Subscribe(ctx context.Context) <-chan worktime.BalanceSnapshot {
	ch := make(chan worktime.BalanceSnapshot, 1)

	lc.mu.Lock()
	id := lc.nextID
	lc.nextID++
	lc.subs[id] = ch
	lc.mu.Unlock()
	metrics.LiveSubscribers.Inc()

	go func() {
		<-ctx.Done()
		lc.mu.Lock()
		delete(lc.subs, id)
		close(ch)
		lc.mu.Unlock()
		metrics.LiveSubscribers.Dec()
	}()
	return ch
}

// Subscribers returns the current subscriber count.
func (lc *LiveClock) Subscribers() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return len(lc.subs)
}

// Run ticks until ctx is canceled.
func (lc *LiveClock) Run(ctx context.Context) {
	ticker := time.NewTicker(lc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lc.Tick(ctx)
		}
	}
}

// Tick computes one snapshot at the clock's now and publishes it.
// Nothing is computed while nobody listens.
func (lc *LiveClock) Tick(ctx context.Context) {
	if lc.Subscribers() == 0 {
		return
	}

	snap, err := lc.compute(ctx, lc.clock.Now())
	if err != nil {
		if ctx.Err() == nil {
			lc.logger.Error().Err(err).Msg("Live balance computation failed")
		}
		return
	}
	lc.publish(snap)
}

func (lc *LiveClock) publish(snap worktime.BalanceSnapshot) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	for _, ch := range lc.subs {
		select {
		case ch <- snap:
		default:
			// Replace the unread snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// =============================================================================
// HUB - One LiveClock per subject, alive while someone listens
// =============================================================================

// Hub shares a LiveClock between all subscribers of a subject.
type Hub struct {
	svc      *Service
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	clocks map[worktime.SubjectID]*hubEntry
	wg     sync.WaitGroup
}

type hubEntry struct {
	clock       *LiveClock
	cancel      context.CancelFunc
	subscribers int
}

func NewHub(svc *Service, interval time.Duration, logger zerolog.Logger) *Hub {
	return &Hub{
		svc:      svc,
		interval: interval,
		logger:   logger.With().Str("component", "live").Logger(),
		clocks:   make(map[worktime.SubjectID]*hubEntry),
	}
}

// Subscribe streams snapshots of subject until ctx is canceled.
func (h *Hub) Subscribe(ctx context.Context, subject worktime.SubjectID) <-chan worktime.BalanceSnapshot {
	h.mu.Lock()
	entry, ok := h.clocks[subject]
	if !ok {
		compute := func(ctx context.Context, now time.Time) (worktime.BalanceSnapshot, error) {
			return h.svc.Balance(ctx, subject, now)
		}
		runCtx, cancel := context.WithCancel(context.Background())
		entry = &hubEntry{
			clock:  NewLiveClock(h.interval, h.svc.clock, compute, h.logger.With().Str("subject", string(subject)).Logger()),
			cancel: cancel,
		}
		h.clocks[subject] = entry

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			entry.clock.Run(runCtx)
		}()
		h.logger.Debug().Str("subject", string(subject)).Msg("Live clock started")
	}
	entry.subscribers++
	ch := entry.clock.Subscribe(ctx)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.release(subject, entry)
	}()
	return ch
}

func (h *Hub) release(subject worktime.SubjectID, entry *hubEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry.subscribers--
	if entry.subscribers > 0 {
		return
	}
	entry.cancel()
	if h.clocks[subject] == entry {
		delete(h.clocks, subject)
	}
	h.logger.Debug().Str("subject", string(subject)).Msg("Live clock stopped")
}

// Active returns the number of subjects with a running clock.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clocks)
}

// Close stops every clock and waits for them to return. Subscriber
// channels close when their own contexts end.
func (h *Hub) Close() {
	h.mu.Lock()
	for subject, entry := range h.clocks {
		entry.cancel()
		delete(h.clocks, subject)
	}
	h.mu.Unlock()
	h.wg.Wait()
}
