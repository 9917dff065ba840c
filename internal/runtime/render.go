package runtime

import (
	"github.com/aretw0/lander/pkg/domain"
)

// Render projects st into the read-only snapshot consumed by views.
func (e *Engine) Render(st *domain.State) domain.Snapshot {
	snap := domain.Snapshot{
		SessionID:     st.SessionID,
		FunnelID:      st.FunnelID,
		Step:          st.Step,
		Steps:         len(e.script.Steps),
		Kind:          st.Phase,
		Answers:       make(map[string]string, len(st.Answers)),
		Messages:      make([]domain.Message, len(st.Transcript)),
		Typing:        st.Typing,
		LoaderStage:   st.LoaderStage,
		ReferenceCode: st.ReferenceCode,
		Savings:       st.Savings,
		Countdown:     st.Remaining,
		Phone:         st.Phone,
		Terminal:      st.Terminal,
	}
	for k, v := range st.Answers {
		snap.Answers[k] = v
	}
	copy(snap.Messages, st.Transcript)

	spec, _ := e.script.Step(st.Step)
	switch st.Phase {
	case domain.StepQuestion:
		snap.Prompt = spec.Prompt
		snap.Options = append([]string(nil), spec.Options...)
		snap.AwaitingInput = !e.pendingMessages(st)
	case domain.StepLoading:
		if st.LoaderStage >= 0 && st.LoaderStage < len(e.script.Loader.Phases) {
			snap.LoaderStatus = e.script.Loader.Phases[st.LoaderStage]
		}
	case domain.StepTerminal:
		snap.Prompt = spec.Prompt
		snap.Outcome = append([]string(nil), e.script.Outcome...)
		snap.CallHref = "tel:" + st.Phone
		if e.script.Countdown > 0 {
			snap.CountdownDisplay = FormatCountdown(st.Remaining, e.script.CountdownFormat)
		}
	}
	return snap
}
