package runtime

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/aretw0/lander/pkg/domain"
)

// startTerminal generates the artifact (once per session) and arms the countdown.
func (e *Engine) startTerminal(st *domain.State) []domain.Effect {
	st.LoaderStage = domain.NoLoaderStage

	// The terminal step is entered exactly once, so the artifact is generated once.
	if !st.Terminal {
		st.Terminal = true
		if a := e.script.Artifact; a.Prefix != "" || a.Max > 0 {
			st.ReferenceCode = a.Prefix + strconv.Itoa(e.between(a.Min, a.Max))
		}
		if e.script.Savings.Enabled() {
			st.Savings = e.between(e.script.Savings.Min, e.script.Savings.Max)
		}
		e.logger.Info("Funnel completed",
			"session_id", st.SessionID, "funnel", st.FunnelID, "reference_code", st.ReferenceCode)
	}

	st.Remaining = int(e.script.Countdown / CountdownInterval)
	if st.Remaining <= 0 {
		st.Remaining = 0
		return nil
	}
	return []domain.Effect{{
		Type:  domain.EffectEvery,
		Owner: st.Epoch,
		Timer: domain.TimerCountdown,
		Delay: CountdownInterval,
	}}
}

// tick decrements the countdown and floors it at zero. Once at zero the interval is
// released, unless a terminal reveal is still pending under the same owner.
func (e *Engine) tick(st *domain.State) []domain.Effect {
	if !st.Terminal {
		return nil
	}
	if st.Remaining > 0 {
		st.Remaining--
	}
	if st.Remaining == 0 && !st.Typing {
		return []domain.Effect{{Type: domain.EffectCancel, Owner: st.Epoch}}
	}
	return nil
}

// between returns a number in [lo, hi].
func (e *Engine) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	span := hi - lo + 1
	if e.rng != nil {
		return lo + e.rng.IntN(span)
	}
	return lo + rand.IntN(span)
}

// FormatCountdown renders seconds as "m:ss", or "mm:ss" with the padded format.
func FormatCountdown(seconds int, format string) string {
	if seconds < 0 {
		seconds = 0
	}
	if format == domain.CountdownPadded {
		return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
