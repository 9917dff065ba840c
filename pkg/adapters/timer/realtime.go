// Package timer provides ports.Scheduler implementations backed by the wall clock
// and by a manually advanced virtual clock.
package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lander/internal/logging"
	"github.com/aretw0/lander/pkg/ports"
)

// entry tracks a live timer and the owner it belongs to.
type entry struct {
	owner  uint64
	timer  *time.Timer
	ticker *time.Ticker
	stop   chan struct{}
}

func (e *entry) halt() {
	if e.timer != nil {
		e.timer.Stop()
	}
	if e.ticker != nil {
		e.ticker.Stop()
		close(e.stop)
	}
}

// Realtime implements ports.Scheduler using Go's standard time package.
// Safe for concurrent use. Callbacks run on their own goroutines, never under the scheduler lock.
type Realtime struct {
	mu      sync.Mutex
	entries map[ports.Handle]*entry
	nextID  ports.Handle
	stopped bool
	logger  *slog.Logger
}

// Option configures a Realtime scheduler.
type Option func(*Realtime)

// WithLogger configures a logger for timer bookkeeping.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Realtime) {
		s.logger = logger
	}
}

// NewRealtime creates a new wall-clock scheduler.
func NewRealtime(opts ...Option) *Realtime {
	s := &Realtime{
		entries: make(map[ports.Handle]*entry),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// After schedules fn to run once after delay.
func (s *Realtime) After(owner uint64, delay time.Duration, fn func()) ports.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.logger.Warn("Scheduler stopped, dropping timer", "owner", owner, "delay", delay)
		return 0
	}

	s.nextID++
	id := s.nextID
	e := &entry{owner: owner}
	// The callback takes the lock, so it cannot observe the map before the entry is stored.
	e.timer = time.AfterFunc(delay, func() {
		if !s.claim(id) {
			return
		}
		fn()
	})
	s.entries[id] = e

	s.logger.Debug("Timer scheduled", "id", id, "owner", owner, "delay", delay)
	return id
}

// Every schedules fn to run at each interval until the owner is cancelled.
func (s *Realtime) Every(owner uint64, interval time.Duration, fn func()) ports.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.logger.Warn("Scheduler stopped, dropping interval", "owner", owner, "interval", interval)
		return 0
	}

	s.nextID++
	id := s.nextID
	e := &entry{
		owner:  owner,
		ticker: time.NewTicker(interval),
		stop:   make(chan struct{}),
	}
	s.entries[id] = e

	go func() {
		for {
			select {
			case <-e.stop:
				return
			case <-e.ticker.C:
				if !s.alive(id) {
					return
				}
				fn()
			}
		}
	}()

	s.logger.Debug("Interval scheduled", "id", id, "owner", owner, "interval", interval)
	return id
}

// claim removes a fired one-shot timer. It reports false if the timer was cancelled meanwhile.
func (s *Realtime) claim(id ports.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

func (s *Realtime) alive(id ports.Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// Cancel stops every live timer of owner.
func (s *Realtime) Cancel(owner uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if e.owner != owner {
			continue
		}
		e.halt()
		delete(s.entries, id)
		n++
	}
	if n > 0 {
		s.logger.Debug("Timers cancelled", "owner", owner, "count", n)
	}
	return n
}

// Live returns the number of pending timers.
func (s *Realtime) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop cancels all scheduled timers.
func (s *Realtime) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		e.halt()
	}
	if len(s.entries) > 0 {
		s.logger.Debug("Scheduler stopped with live timers", "count", len(s.entries))
	}
	s.entries = make(map[ports.Handle]*entry)
	s.stopped = true
}
