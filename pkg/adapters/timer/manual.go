package timer

import (
	"sync"
	"time"

	"github.com/aretw0/lander/pkg/ports"
)

type manualEntry struct {
	owner    uint64
	due      time.Duration
	interval time.Duration
	order    uint64
	fn       func()
}

// Manual is a virtual-clock scheduler. Nothing fires until Advance is called,
// which makes timer-driven flows deterministic in tests and offline rendering.
// One Manual should back a single session, as owners are not namespaced.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	entries map[ports.Handle]*manualEntry
	nextID  ports.Handle
	order   uint64
}

// NewManual creates a virtual clock positioned at zero.
func NewManual() *Manual {
	return &Manual{entries: make(map[ports.Handle]*manualEntry)}
}

// Now returns the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After schedules fn at now+delay on the virtual clock.
func (m *Manual) After(owner uint64, delay time.Duration, fn func()) ports.Handle {
	return m.add(owner, delay, 0, fn)
}

// Every schedules fn at each interval on the virtual clock.
func (m *Manual) Every(owner uint64, interval time.Duration, fn func()) ports.Handle {
	if interval <= 0 {
		interval = time.Nanosecond
	}
	return m.add(owner, interval, interval, fn)
}

func (m *Manual) add(owner uint64, delay, interval time.Duration, fn func()) ports.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if delay < 0 {
		delay = 0
	}
	m.nextID++
	m.order++
	m.entries[m.nextID] = &manualEntry{
		owner:    owner,
		due:      m.now + delay,
		interval: interval,
		order:    m.order,
		fn:       fn,
	}
	return m.nextID
}

// Advance moves the clock forward by d, firing every timer that falls due, in due order.
// Ties fire in scheduling order. Callbacks run without the lock held and may schedule
// further timers, which fire within the same Advance when they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		fn, ok := m.popDue(target)
		if !ok {
			return
		}
		fn()
	}
}

func (m *Manual) popDue(target time.Duration) (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		nextID ports.Handle
		next   *manualEntry
	)
	for id, e := range m.entries {
		if e.due > target {
			continue
		}
		if next == nil || e.due < next.due || (e.due == next.due && e.order < next.order) {
			nextID, next = id, e
		}
	}
	if next == nil {
		m.now = target
		return nil, false
	}

	m.now = next.due
	if next.interval > 0 {
		m.order++
		next.due += next.interval
		next.order = m.order
	} else {
		delete(m.entries, nextID)
	}
	return next.fn, true
}

// Cancel drops every pending timer of owner.
func (m *Manual) Cancel(owner uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, e := range m.entries {
		if e.owner == owner {
			delete(m.entries, id)
			n++
		}
	}
	return n
}

// Live returns the number of pending timers.
func (m *Manual) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stop drops all pending timers.
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[ports.Handle]*manualEntry)
}
