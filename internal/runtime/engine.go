// Package runtime implements the funnel state machine as a pure transition function.
//
// The Engine never touches a clock. Every timer it needs is returned as a domain.Effect
// owned by the state's current Epoch, and an outer driver executes those effects and feeds
// the fired timers back as events.
package runtime

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/lander/internal/logging"
	"github.com/aretw0/lander/pkg/domain"
)

// CountdownInterval is the tick period of the terminal countdown.
const CountdownInterval = time.Second

// Engine applies events to funnel states for one script.
type Engine struct {
	script *domain.Script
	rng    *rand.Rand
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRandom sets the source used for the terminal artifact. Mainly for tests.
// A *rand.Rand is not safe for concurrent use, so share it only with a single session.
func WithRandom(r *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = r
	}
}

// WithLogger configures the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine for script. The script is expected to be valid.
func NewEngine(script *domain.Script, opts ...Option) *Engine {
	e := &Engine{
		script: script,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Script returns the script driven by this engine.
func (e *Engine) Script() *domain.Script {
	return e.script
}

// Start creates the initial state of a session and the effects needed to bring step 1 to life.
// An empty phone falls back to the script default.
func (e *Engine) Start(sessionID, phone string) (*domain.State, []domain.Effect) {
	st := domain.NewState(sessionID, e.script.ID)
	st.Phone = e.script.Phone
	if phone != "" {
		st.Phone = phone
	}
	effects := e.enter(st)
	e.logger.Debug("Session started", "session_id", sessionID, "funnel", e.script.ID)
	return st, effects
}

// Apply computes the next state for ev. The input state is never mutated.
// Stale or irrelevant timer events return an unchanged copy and no effects.
// The only error is domain.ErrNotInteractive for an answer outside a question step.
func (e *Engine) Apply(current *domain.State, ev domain.Event) (*domain.State, []domain.Effect, error) {
	st := current.Clone()

	switch ev.Type {
	case domain.EventSubmit:
		return e.submit(st, ev.Key, ev.Value)
	case domain.EventTimer:
		if ev.Owner != st.Epoch {
			e.logger.Debug("Discarding stale timer",
				"session_id", st.SessionID, "timer", ev.Timer, "owner", ev.Owner, "epoch", st.Epoch)
			return st, nil, nil
		}
		switch ev.Timer {
		case domain.TimerReveal:
			return st, e.revealFired(st, ev.Seq), nil
		case domain.TimerLoader:
			return st, e.loaderFired(st, ev.Seq), nil
		case domain.TimerCountdown:
			return st, e.tick(st), nil
		}
		return st, nil, fmt.Errorf("unknown timer kind %q", ev.Timer)
	case domain.EventTick:
		return st, e.tick(st), nil
	}
	return st, nil, fmt.Errorf("unknown event type %q", ev.Type)
}

// Stale reports whether ev is a timer callback whose owner has moved on.
func Stale(st *domain.State, ev domain.Event) bool {
	return ev.Type == domain.EventTimer && ev.Owner != st.Epoch
}

func (e *Engine) submit(st *domain.State, key, value string) (*domain.State, []domain.Effect, error) {
	if st.Phase != domain.StepQuestion {
		return st, nil, domain.ErrNotInteractive
	}
	spec, _ := e.script.Step(st.Step)
	if key == "" {
		key = spec.Key
	}
	// Answers are append-only. A repeated key keeps the first value.
	if _, exists := st.Answers[key]; !exists {
		st.Answers[key] = value
	}
	return st, e.advance(st), nil
}

// advance moves to the next step, releasing every timer owned by the current one.
func (e *Engine) advance(st *domain.State) []domain.Effect {
	if st.Step >= e.script.TerminalStep() {
		return nil
	}
	effects := []domain.Effect{{Type: domain.EffectCancel, Owner: st.Epoch}}
	st.Epoch++
	st.Step++
	st.Typing = false
	return append(effects, e.enter(st)...)
}

// enter initializes the phase of the current step.
func (e *Engine) enter(st *domain.State) []domain.Effect {
	spec, ok := e.script.Step(st.Step)
	if !ok {
		return nil
	}
	st.Phase = spec.Kind

	var effects []domain.Effect
	switch spec.Kind {
	case domain.StepLoading:
		effects = e.startLoader(st)
	case domain.StepTerminal:
		effects = e.startTerminal(st)
	}
	return append(e.reveal(st), effects...)
}
