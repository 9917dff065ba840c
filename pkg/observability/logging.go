package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/lander/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_enter",
				"session_id", e.SessionID,
				"funnel", e.FunnelID,
				"step", e.Step,
				"kind", e.Kind,
			)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_leave", "session_id", e.SessionID, "step", e.Step)
		},
		OnReveal: func(ctx context.Context, e *domain.RevealEvent) {
			logger.DebugContext(ctx, "reveal",
				"session_id", e.SessionID,
				"speaker", e.Message.Speaker,
				"step", e.Message.Step,
			)
		},
		OnTerminal: func(ctx context.Context, e *domain.TerminalEvent) {
			logger.InfoContext(ctx, "terminal",
				"session_id", e.SessionID,
				"funnel", e.FunnelID,
				"reference_code", e.ReferenceCode,
			)
		},
		OnStaleTimer: func(ctx context.Context, e *domain.StaleTimerEvent) {
			logger.DebugContext(ctx, "stale_timer",
				"session_id", e.SessionID,
				"timer", e.Timer,
				"owner", e.Owner,
				"current", e.Current,
			)
		},
		OnSessionEnd: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_end",
				"session_id", e.SessionID,
				"step", e.Step,
				"completed", e.Terminal,
			)
		},
	}
}
