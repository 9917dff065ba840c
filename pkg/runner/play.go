package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aretw0/lander/internal/logging"
	"github.com/aretw0/lander/pkg/domain"
)

type playConfig struct {
	follow bool
	logger *slog.Logger
}

// PlayOption configures Play.
type PlayOption func(*playConfig)

// WithFollowCountdown keeps Play running in the terminal step until the countdown reaches zero.
func WithFollowCountdown(follow bool) PlayOption {
	return func(c *playConfig) {
		c.follow = follow
	}
}

// WithPlayLogger configures the logger used for rejected answers.
func WithPlayLogger(logger *slog.Logger) PlayOption {
	return func(c *playConfig) {
		c.logger = logger
	}
}

// Play binds a session to an IOHandler: every snapshot change is handed to Output and an
// answer is read whenever the session awaits input. It returns nil once the terminal step
// has settled (or its countdown expired, when following), or when input reaches EOF.
func Play(ctx context.Context, r *Runner, h IOHandler, opts ...PlayOption) error {
	cfg := playConfig{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	updates, stop := r.Subscribe()
	defer stop()

	answers := make(chan inputResult, 1)
	asking := false
	ask := func() {
		asking = true
		go func() {
			text, err := h.Input(ctx)
			answers <- inputResult{text: text, err: err}
		}()
	}

	var prev *domain.Snapshot
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			if diff := domain.Diff(prev, &snap); diff != nil {
				if err := h.Output(ctx, snap, diff); err != nil {
					return err
				}
			}
			current := snap
			prev = &current

			if settled(snap, cfg.follow) {
				return nil
			}
			if snap.AwaitingInput && !asking {
				ask()
			}

		case in := <-answers:
			asking = false
			if in.err != nil {
				if errors.Is(in.err, io.EOF) {
					return nil
				}
				return in.err
			}
			value, err := SanitizeAnswer(in.text)
			if err != nil {
				cfg.logger.Warn("Answer rejected", "err", err)
				ask()
				continue
			}
			if prev != nil {
				value = NormalizeChoice(value, prev.Options)
			}
			if _, err := r.Submit(ctx, "", value); err != nil && !errors.Is(err, domain.ErrNotInteractive) {
				return err
			}
		}
	}
}

func settled(snap domain.Snapshot, follow bool) bool {
	if !snap.Terminal || snap.Typing {
		return false
	}
	return !follow || snap.Countdown == 0
}
