package domain

// Message is a revealed line of the transcript.
type Message struct {
	Step    int     `json:"step"`
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// NoLoaderStage marks that no loader phase is being displayed.
const NoLoaderStage = -1

// State represents the current snapshot of a funnel session.
// It is only ever replaced, never mutated in place, by the transition function.
type State struct {
	SessionID string `json:"session_id"`
	FunnelID  string `json:"funnel_id"`

	// Step is the 1-based ordinal of the current step. It never decreases.
	Step int `json:"step"`

	// Phase mirrors the kind of the current step.
	Phase StepKind `json:"phase"`

	// Epoch identifies the step/phase that owns scheduled timers.
	// It is bumped on every step change so stale callbacks can be discarded.
	Epoch uint64 `json:"epoch"`

	// Answers is append-only: a key is written when its step is answered.
	Answers map[string]string `json:"answers"`

	// Revealed is the cursor into the eligible scripted messages.
	Revealed   int       `json:"revealed"`
	Transcript []Message `json:"transcript"`

	// AssistantShown counts revealed assistant messages; the first one uses the longer delay.
	AssistantShown int `json:"assistant_shown"`

	Typing      bool `json:"typing"`
	LoaderStage int  `json:"loader_stage"`

	ReferenceCode string `json:"reference_code,omitempty"`
	Savings       int    `json:"savings,omitempty"`

	// Remaining is the countdown in whole seconds. It floors at zero.
	Remaining int `json:"remaining"`

	Phone    string `json:"phone"`
	Terminal bool   `json:"terminal"`
}

// NewState creates a clean state positioned at step 1.
func NewState(sessionID, funnelID string) *State {
	return &State{
		SessionID:   sessionID,
		FunnelID:    funnelID,
		Step:        1,
		Phase:       StepQuestion,
		Epoch:       1,
		Answers:     make(map[string]string),
		Transcript:  []Message{},
		LoaderStage: NoLoaderStage,
	}
}

// Clone returns a deep copy so transitions never alias the caller's state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	c.Transcript = make([]Message, len(s.Transcript))
	copy(c.Transcript, s.Transcript)
	return &c
}
