package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/lander/internal/logging"
	"github.com/aretw0/lander/internal/runtime"
	"github.com/aretw0/lander/pkg/adapters/timer"
	"github.com/aretw0/lander/pkg/domain"
	"github.com/aretw0/lander/pkg/ports"
	"github.com/aretw0/lander/pkg/runner"
	"github.com/google/uuid"
)

// ErrTooManySessions is returned by Start when the live session limit is reached.
var ErrTooManySessions = errors.New("too many live sessions")

// Summary is a listing entry for a live session.
type Summary struct {
	ID         string    `json:"id"`
	FunnelID   string    `json:"funnel_id"`
	Step       int       `json:"step"`
	Kind       string    `json:"kind"`
	Terminal   bool      `json:"terminal"`
	LastActive time.Time `json:"last_active"`
}

// Manager owns the live sessions.
type Manager struct {
	loader ports.ScriptLoader

	mu       sync.RWMutex
	sessions map[string]*runner.Runner

	newScheduler func() ports.Scheduler
	newID        func() string
	hooks        domain.LifecycleHooks
	phone        string
	idleTTL      time.Duration
	maxSessions  int
	externalTick bool
	logger       *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	reaper   sync.WaitGroup
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager and the sessions it starts.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHooks registers lifecycle hooks on every session. Repeated calls are merged.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = m.hooks.Merge(hooks)
	}
}

// WithSchedulerFactory sets how each session gets its scheduler.
func WithSchedulerFactory(fn func() ports.Scheduler) Option {
	return func(m *Manager) {
		m.newScheduler = fn
	}
}

// WithIDGenerator overrides the session ID source. Mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// WithDefaultPhone overrides the script contact number when a session brings none.
func WithDefaultPhone(phone string) Option {
	return func(m *Manager) {
		m.phone = phone
	}
}

// WithIdleTTL ends sessions that saw no answer or tick for ttl. Zero disables the reaper.
func WithIdleTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.idleTTL = ttl
	}
}

// WithMaxSessions caps the number of live sessions. Zero means unlimited.
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		m.maxSessions = n
	}
}

// WithExternalTicks makes the views' ticks drive every session countdown instead of the
// session's own clock. See runner.WithExternalTicks.
func WithExternalTicks(external bool) Option {
	return func(m *Manager) {
		m.externalTick = external
	}
}

// NewManager creates a Session Manager serving scripts from loader.
func NewManager(loader ports.ScriptLoader, opts ...Option) *Manager {
	m := &Manager{
		loader:   loader,
		sessions: make(map[string]*runner.Runner),
		newID:    uuid.NewString,
		logger:   logging.NewNop(), // Default to no-op
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.newScheduler == nil {
		m.newScheduler = func() ports.Scheduler {
			return timer.NewRealtime(timer.WithLogger(m.logger))
		}
	}
	if m.idleTTL > 0 {
		m.reaper.Add(1)
		go m.reap()
	}
	return m
}

// Loader returns the script source.
func (m *Manager) Loader() ports.ScriptLoader {
	return m.loader
}

// Start opens a new session of funnelID. phone is an opaque override of the contact number.
func (m *Manager) Start(ctx context.Context, funnelID, phone string) (*runner.Runner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	script, err := m.loader.Load(funnelID)
	if err != nil {
		return nil, err
	}
	if phone == "" {
		phone = m.phone
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManySessions, m.maxSessions)
	}

	id := m.newID()
	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("session id collision: %s", id)
	}

	engine := runtime.NewEngine(script, runtime.WithLogger(m.logger))
	opts := []runner.Option{
		runner.WithScheduler(m.newScheduler()),
		runner.WithLogger(m.logger),
		runner.WithHooks(m.hooks),
	}
	if m.externalTick {
		opts = append(opts, runner.WithExternalTicks())
	}
	r := runner.New(engine, id, phone, opts...)
	m.sessions[id] = r

	m.logger.Info("Session started", "session_id", id, "funnel", funnelID)
	return r, nil
}

// Get returns a live session.
func (m *Manager) Get(sessionID string) (*runner.Runner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return r, nil
}

// End tears a session down and forgets it.
func (m *Manager) End(sessionID string) error {
	m.mu.Lock()
	r, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	r.Close()
	m.logger.Info("Session ended", "session_id", sessionID)
	return nil
}

// List returns a summary of every live session, ordered by ID.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	runners := make([]*runner.Runner, 0, len(m.sessions))
	for _, r := range m.sessions {
		runners = append(runners, r)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(runners))
	for _, r := range runners {
		snap := r.Snapshot()
		out = append(out, Summary{
			ID:         r.SessionID(),
			FunnelID:   snap.FunnelID,
			Step:       snap.Step,
			Kind:       string(snap.Kind),
			Terminal:   snap.Terminal,
			LastActive: r.LastActive(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Reap ends every session idle since before now minus the idle TTL.
// It returns the number of sessions ended.
func (m *Manager) Reap(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.idleTTL)

	m.mu.Lock()
	var expired []*runner.Runner
	for id, r := range m.sessions {
		if r.LastActive().Before(cutoff) {
			expired = append(expired, r)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, r := range expired {
		r.Close()
		m.logger.Info("Session expired", "session_id", r.SessionID(), "idle_ttl", m.idleTTL)
	}
	return len(expired)
}

func (m *Manager) reap() {
	defer m.reaper.Done()

	interval := m.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.Reap(now)
		}
	}
}

// Close stops the reaper and ends every session.
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
		m.reaper.Wait()

		m.mu.Lock()
		sessions := m.sessions
		m.sessions = make(map[string]*runner.Runner)
		m.mu.Unlock()

		for _, r := range sessions {
			r.Close()
		}
		if len(sessions) > 0 {
			m.logger.Info("Sessions closed", "count", len(sessions))
		}
	})
}
