package runtime

import (
	"time"

	"github.com/aretw0/lander/pkg/domain"
)

// reveal appends eligible messages in order until it hits an assistant line,
// for which it raises the typing flag and requests a single delayed reveal.
func (e *Engine) reveal(st *domain.State) []domain.Effect {
	msgs := e.script.Messages
	for !st.Typing && st.Revealed < len(msgs) {
		m := msgs[st.Revealed]
		if m.Step > st.Step {
			return nil
		}
		if m.Speaker == domain.SpeakerUser {
			st.Transcript = append(st.Transcript, domain.Message{
				Step:    m.Step,
				Speaker: m.Speaker,
				Text:    e.text(st, m),
			})
			st.Revealed++
			continue
		}

		st.Typing = true
		return []domain.Effect{{
			Type:  domain.EffectSchedule,
			Owner: st.Epoch,
			Timer: domain.TimerReveal,
			Seq:   st.Revealed,
			Delay: e.typingDelay(st, m),
		}}
	}
	return nil
}

func (e *Engine) revealFired(st *domain.State, seq int) []domain.Effect {
	if !st.Typing || seq != st.Revealed || seq >= len(e.script.Messages) {
		return nil
	}
	m := e.script.Messages[seq]
	st.Transcript = append(st.Transcript, domain.Message{
		Step:    m.Step,
		Speaker: m.Speaker,
		Text:    e.text(st, m),
	})
	st.Revealed++
	st.AssistantShown++
	st.Typing = false
	return e.reveal(st)
}

func (e *Engine) text(st *domain.State, m domain.ScriptedMessage) string {
	if m.Answer != "" {
		return st.Answers[m.Answer]
	}
	return m.Text
}

func (e *Engine) typingDelay(st *domain.State, m domain.ScriptedMessage) time.Duration {
	if spec, ok := e.script.Step(m.Step); ok && spec.TypingDelay > 0 {
		return spec.TypingDelay
	}
	if st.AssistantShown == 0 {
		return e.script.Reveal.First
	}
	return e.script.Reveal.Next
}

// pendingMessages reports whether eligible messages are still hidden.
func (e *Engine) pendingMessages(st *domain.State) bool {
	if st.Typing {
		return true
	}
	msgs := e.script.Messages
	return st.Revealed < len(msgs) && msgs[st.Revealed].Step <= st.Step
}
