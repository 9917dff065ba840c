package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lander/internal/logging"
	"github.com/aretw0/lander/internal/runtime"
	"github.com/aretw0/lander/pkg/adapters/timer"
	"github.com/aretw0/lander/pkg/domain"
	"github.com/aretw0/lander/pkg/ports"
)

// envelope is a queued event. done is nil for timer callbacks nobody waits on.
type envelope struct {
	ctx  context.Context
	ev   domain.Event
	done chan error
}

// Runner drives a single funnel session.
type Runner struct {
	id        string
	engine    *runtime.Engine
	scheduler ports.Scheduler
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	bufSize   int
	// externalTicks moves the countdown to Tick only; the runner arms no interval of its own.
	externalTicks bool

	// qmu guards the event queue and the closed flag.
	qmu    sync.Mutex
	queue  []envelope
	closed bool

	// mu is held while events are applied; it guards everything below.
	mu         sync.Mutex
	state      *domain.State
	snap       domain.Snapshot
	lastActive time.Time
	subs       map[int]chan domain.Snapshot
	nextSub    int

	done      chan struct{}
	closeOnce sync.Once
}

// New starts a session of the engine's script. An empty phone keeps the script default.
func New(engine *runtime.Engine, sessionID, phone string, opts ...Option) *Runner {
	r := &Runner{
		id:      sessionID,
		engine:  engine,
		logger:  logging.NewNop(),
		bufSize: DefaultSubscriberBuffer,
		subs:    make(map[int]chan domain.Snapshot),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scheduler == nil {
		r.scheduler = timer.NewRealtime(timer.WithLogger(r.logger))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st, effects := engine.Start(sessionID, phone)
	r.state = st
	r.lastActive = time.Now()
	r.exec(effects)
	if r.hooks.OnStepEnter != nil {
		r.hooks.OnStepEnter(context.Background(), r.stepEvent(st))
	}
	r.publish()
	return r
}

// SessionID returns the session identifier.
func (r *Runner) SessionID() string {
	return r.id
}

// Script returns the script this session runs.
func (r *Runner) Script() *domain.Script {
	return r.engine.Script()
}

// Submit records an answer for the current question step and returns the resulting snapshot.
// It fails with domain.ErrNotInteractive outside question steps and domain.ErrSessionClosed after Close.
func (r *Runner) Submit(ctx context.Context, key, value string) (domain.Snapshot, error) {
	if err := r.send(ctx, domain.Submit(key, value)); err != nil {
		return r.Snapshot(), err
	}
	return r.Snapshot(), nil
}

// Tick forwards the view's rendering clock. With WithExternalTicks it decrements the terminal
// countdown once; otherwise the runner's own clock owns the countdown and Tick only marks the
// session active and returns the current snapshot.
func (r *Runner) Tick(ctx context.Context) (domain.Snapshot, error) {
	if err := r.send(ctx, domain.Tick()); err != nil {
		return r.Snapshot(), err
	}
	return r.Snapshot(), nil
}

// send enqueues an interactive event and waits for it to be applied.
func (r *Runner) send(ctx context.Context, ev domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	if err := r.post(ctx, ev, done); err != nil {
		return err
	}
	// post returns only after the queue holding our event was drained.
	return <-done
}

// post appends ev to the queue and drains it. Whoever holds mu drains every pending event,
// so events are applied one at a time in arrival order.
func (r *Runner) post(ctx context.Context, ev domain.Event, done chan error) error {
	r.qmu.Lock()
	if r.closed {
		r.qmu.Unlock()
		return domain.ErrSessionClosed
	}
	r.queue = append(r.queue, envelope{ctx: ctx, ev: ev, done: done})
	r.qmu.Unlock()

	r.drain()
	return nil
}

func (r *Runner) drain() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		r.qmu.Lock()
		if len(r.queue) == 0 {
			r.qmu.Unlock()
			return
		}
		env := r.queue[0]
		r.queue = r.queue[1:]
		closed := r.closed
		r.qmu.Unlock()

		var err error
		if closed {
			err = domain.ErrSessionClosed
		} else {
			err = r.apply(env.ctx, env.ev)
		}
		if env.done != nil {
			env.done <- err
		}
	}
}

// apply runs one event through the engine. Must be called with mu held.
func (r *Runner) apply(ctx context.Context, ev domain.Event) error {
	prev := r.state
	if ev.Type == domain.EventTick && !r.externalTicks {
		r.lastActive = time.Now()
		return nil
	}
	if runtime.Stale(prev, ev) {
		r.logger.Debug("Stale timer discarded",
			"session_id", prev.SessionID, "timer", ev.Timer, "owner", ev.Owner, "epoch", prev.Epoch)
		if r.hooks.OnStaleTimer != nil {
			r.hooks.OnStaleTimer(ctx, &domain.StaleTimerEvent{
				SessionID: prev.SessionID,
				FunnelID:  prev.FunnelID,
				Owner:     ev.Owner,
				Current:   prev.Epoch,
				Timer:     ev.Timer,
			})
		}
		return nil
	}

	next, effects, err := r.engine.Apply(prev, ev)
	if err != nil {
		r.logger.Debug("Event rejected", "session_id", prev.SessionID, "event", ev.Type, "step", prev.Step, "err", err)
		return err
	}
	if ev.Type != domain.EventTimer {
		r.lastActive = time.Now()
	}

	r.state = next
	r.exec(effects)
	r.notify(ctx, prev, next)
	r.publish()
	return nil
}

// exec carries out the timer effects. Must be called with mu held.
func (r *Runner) exec(effects []domain.Effect) {
	for _, eff := range effects {
		switch eff.Type {
		case domain.EffectSchedule:
			r.scheduler.After(eff.Owner, eff.Delay, r.callback(eff))
		case domain.EffectEvery:
			if r.externalTicks && eff.Timer == domain.TimerCountdown {
				continue
			}
			r.scheduler.Every(eff.Owner, eff.Delay, r.callback(eff))
		case domain.EffectCancel:
			if n := r.scheduler.Cancel(eff.Owner); n > 0 {
				r.logger.Debug("Released timers", "owner", eff.Owner, "count", n)
			}
		}
	}
}

func (r *Runner) callback(eff domain.Effect) func() {
	ev := domain.Fired(eff.Owner, eff.Timer, eff.Seq)
	return func() {
		// A closed session simply swallows late callbacks.
		_ = r.post(context.Background(), ev, nil)
	}
}

func (r *Runner) notify(ctx context.Context, prev, next *domain.State) {
	if next.Step != prev.Step {
		if r.hooks.OnStepLeave != nil {
			r.hooks.OnStepLeave(ctx, r.stepEvent(prev))
		}
		if r.hooks.OnStepEnter != nil {
			r.hooks.OnStepEnter(ctx, r.stepEvent(next))
		}
	}
	if r.hooks.OnReveal != nil {
		for _, m := range next.Transcript[len(prev.Transcript):] {
			r.hooks.OnReveal(ctx, &domain.RevealEvent{
				Timestamp: time.Now(),
				SessionID: next.SessionID,
				FunnelID:  next.FunnelID,
				Message:   m,
			})
		}
	}
	if next.Terminal && !prev.Terminal && r.hooks.OnTerminal != nil {
		r.hooks.OnTerminal(ctx, &domain.TerminalEvent{
			Timestamp:     time.Now(),
			SessionID:     next.SessionID,
			FunnelID:      next.FunnelID,
			ReferenceCode: next.ReferenceCode,
		})
	}
}

func (r *Runner) stepEvent(st *domain.State) *domain.StepEvent {
	return &domain.StepEvent{
		Timestamp: time.Now(),
		SessionID: st.SessionID,
		FunnelID:  st.FunnelID,
		Step:      st.Step,
		Kind:      st.Phase,
	}
}

// publish renders the state and hands it to every subscriber. Must be called with mu held.
// A slow subscriber loses intermediate snapshots but always receives the latest one.
func (r *Runner) publish() {
	r.snap = r.engine.Render(r.state)
	for _, ch := range r.subs {
		offer(ch, r.snap)
	}
}

func offer(ch chan domain.Snapshot, snap domain.Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Snapshot returns the current read-only view of the session.
func (r *Runner) Snapshot() domain.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// State returns a copy of the current state.
func (r *Runner) State() *domain.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// Subscribe returns a channel of snapshots, starting with the current one, and a function
// to stop the subscription. The channel is closed on unsubscribe or when the session closes.
func (r *Runner) Subscribe() (<-chan domain.Snapshot, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan domain.Snapshot, r.bufSize)
	select {
	case <-r.done:
		close(ch)
		return ch, func() {}
	default:
	}

	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	ch <- r.snap

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if c, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(c)
			}
		})
	}
}

// LastActive returns the time of the last accepted user event.
func (r *Runner) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}

// LiveTimers returns the number of timers the session still holds.
func (r *Runner) LiveTimers() int {
	return r.scheduler.Live()
}

// Done is closed once the session has been torn down.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Close tears the session down: every timer is released and subscribers are closed.
// It is safe to call more than once, but not from inside a hook.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		r.qmu.Lock()
		r.closed = true
		r.qmu.Unlock()

		r.mu.Lock()
		defer r.mu.Unlock()

		live := r.scheduler.Live()
		r.scheduler.Stop()
		for id, ch := range r.subs {
			delete(r.subs, id)
			close(ch)
		}
		close(r.done)
		r.logger.Debug("Session closed", "session_id", r.state.SessionID, "released_timers", live)

		if r.hooks.OnSessionEnd != nil {
			r.hooks.OnSessionEnd(context.Background(), &domain.SessionEvent{
				Timestamp: time.Now(),
				SessionID: r.state.SessionID,
				FunnelID:  r.state.FunnelID,
				Step:      r.state.Step,
				Terminal:  r.state.Terminal,
			})
		}
	})
}
