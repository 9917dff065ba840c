package domain

import (
	"context"
	"time"
)

// EventType defines the category of an input to the transition function.
type EventType string

const (
	EventSubmit EventType = "submit"
	EventTimer  EventType = "timer"
	EventTick   EventType = "tick"
)

// TimerKind tells the transition function what a fired timer was for.
type TimerKind string

const (
	TimerReveal    TimerKind = "reveal"
	TimerLoader    TimerKind = "loader"
	TimerCountdown TimerKind = "countdown"
)

// Event is the single input type of the funnel state machine.
type Event struct {
	Type EventType

	// Submit fields.
	Key   string
	Value string

	// Timer fields. Owner is the epoch that scheduled the timer; Seq orders timers of one owner.
	Owner uint64
	Timer TimerKind
	Seq   int
}

// Submit builds an answer event.
func Submit(key, value string) Event {
	return Event{Type: EventSubmit, Key: key, Value: value}
}

// Fired builds a timer callback event.
func Fired(owner uint64, kind TimerKind, seq int) Event {
	return Event{Type: EventTimer, Owner: owner, Timer: kind, Seq: seq}
}

// Tick builds a countdown tick event.
func Tick() Event {
	return Event{Type: EventTick}
}

// EffectType defines the side-effects the transition function can request.
type EffectType string

const (
	// EffectSchedule requests a one-shot timer.
	EffectSchedule EffectType = "schedule"
	// EffectEvery requests a repeating timer.
	EffectEvery EffectType = "every"
	// EffectCancel requests cancellation of every timer owned by Owner.
	EffectCancel EffectType = "cancel"
)

// Effect is a timer request. The driver executes it and tracks the handles by Owner.
type Effect struct {
	Type  EffectType
	Owner uint64
	Timer TimerKind
	Seq   int
	Delay time.Duration
}

// StepEvent describes entry into or exit from a step.
type StepEvent struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	FunnelID  string    `json:"funnel_id"`
	Step      int       `json:"step"`
	Kind      StepKind  `json:"kind"`
}

// RevealEvent describes a newly revealed transcript line.
type RevealEvent struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	FunnelID  string    `json:"funnel_id"`
	Message   Message   `json:"message"`
}

// TerminalEvent is emitted once per session when the terminal step is reached.
type TerminalEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`
	FunnelID      string    `json:"funnel_id"`
	ReferenceCode string    `json:"reference_code"`
}

// StaleTimerEvent is emitted when a callback fires after its owning step moved on.
type StaleTimerEvent struct {
	SessionID string    `json:"session_id"`
	FunnelID  string    `json:"funnel_id"`
	Owner     uint64    `json:"owner"`
	Current   uint64    `json:"current"`
	Timer     TimerKind `json:"timer"`
}

// SessionEvent is emitted once when a session is torn down.
type SessionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	FunnelID  string    `json:"funnel_id"`
	Step      int       `json:"step"`
	Terminal  bool      `json:"terminal"`
}

// LifecycleHooks defines callbacks for observability.
type LifecycleHooks struct {
	OnStepEnter  func(context.Context, *StepEvent)
	OnStepLeave  func(context.Context, *StepEvent)
	OnReveal     func(context.Context, *RevealEvent)
	OnTerminal   func(context.Context, *TerminalEvent)
	OnStaleTimer func(context.Context, *StaleTimerEvent)
	OnSessionEnd func(context.Context, *SessionEvent)
}

// Merge combines two hook sets; both callbacks run, a first then b.
func (a LifecycleHooks) Merge(b LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepEnter:  chain(a.OnStepEnter, b.OnStepEnter),
		OnStepLeave:  chain(a.OnStepLeave, b.OnStepLeave),
		OnReveal:     chain(a.OnReveal, b.OnReveal),
		OnTerminal:   chain(a.OnTerminal, b.OnTerminal),
		OnStaleTimer: chain(a.OnStaleTimer, b.OnStaleTimer),
		OnSessionEnd: chain(a.OnSessionEnd, b.OnSessionEnd),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
