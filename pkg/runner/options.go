package runner

import (
	"log/slog"

	"github.com/aretw0/lander/pkg/domain"
	"github.com/aretw0/lander/pkg/ports"
)

// DefaultSubscriberBuffer is the number of snapshots buffered per subscriber.
const DefaultSubscriberBuffer = 16

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithScheduler configures the scheduler that executes timer effects.
// A scheduler must not be shared between runners: timer owners are per-session epochs.
func WithScheduler(s ports.Scheduler) Option {
	return func(r *Runner) {
		r.scheduler = s
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithHooks registers lifecycle hooks. Repeated calls are merged.
// Hooks run on the event loop and must not call back into the Runner.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.hooks = r.hooks.Merge(hooks)
	}
}

// WithSubscriberBuffer sets the per-subscriber snapshot buffer.
func WithSubscriberBuffer(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.bufSize = n
		}
	}
}

// WithExternalTicks hands the terminal countdown to Tick: the runner arms no countdown
// interval and every Tick decrements once. Use it when the view forwards its own clock.
func WithExternalTicks() Option {
	return func(r *Runner) {
		r.externalTicks = true
	}
}
