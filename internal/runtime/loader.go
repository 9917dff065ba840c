package runtime

import (
	"time"

	"github.com/aretw0/lander/pkg/domain"
)

// startLoader shows phase 0 and schedules one timer per phase at k*Interval.
// The last timer finalizes the loading step.
func (e *Engine) startLoader(st *domain.State) []domain.Effect {
	phases := e.script.Loader.Phases
	st.LoaderStage = 0

	effects := make([]domain.Effect, 0, len(phases))
	for k := 1; k <= len(phases); k++ {
		effects = append(effects, domain.Effect{
			Type:  domain.EffectSchedule,
			Owner: st.Epoch,
			Timer: domain.TimerLoader,
			Seq:   k,
			Delay: time.Duration(k) * e.script.Loader.Interval,
		})
	}
	return effects
}

func (e *Engine) loaderFired(st *domain.State, k int) []domain.Effect {
	if st.Phase != domain.StepLoading {
		return nil
	}
	n := len(e.script.Loader.Phases)
	if k < n {
		st.LoaderStage = k
		return nil
	}
	st.LoaderStage = domain.NoLoaderStage
	return e.advance(st)
}
