package domain

import "time"

// StepKind defines how a step behaves inside the funnel.
type StepKind string

const (
	// StepQuestion displays a prompt and halts waiting for an answer (hard step).
	StepQuestion StepKind = "question"
	// StepLoading is a non-interactive, multi-phase step that advances on its own.
	StepLoading StepKind = "loading"
	// StepTerminal shows the simulated result and the countdown. It never advances.
	StepTerminal StepKind = "terminal"
)

// Speaker identifies who "says" a scripted message.
type Speaker string

const (
	// SpeakerAssistant is the simulated counterpart. Its messages are revealed after a typing delay.
	SpeakerAssistant Speaker = "assistant"
	// SpeakerUser is the interactive participant. Its messages echo recorded answers immediately.
	SpeakerUser Speaker = "user"
)

// StepSpec describes one ordinal position of the funnel.
// Steps are numbered from 1 in the order they appear in Script.Steps.
type StepSpec struct {
	Kind StepKind `json:"kind" yaml:"kind" mapstructure:"kind"`

	// Key is the answer key recorded by a question step.
	Key string `json:"key,omitempty" yaml:"key,omitempty" mapstructure:"key"`

	Prompt  string   `json:"prompt,omitempty" yaml:"prompt,omitempty" mapstructure:"prompt"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`

	// TypingDelay overrides the script-wide reveal delays for assistant messages owned by this step.
	TypingDelay time.Duration `json:"typing_delay,omitempty" yaml:"typing_delay,omitempty" mapstructure:"typing_delay"`
}

// ScriptedMessage is an immutable line of the simulated conversation.
type ScriptedMessage struct {
	// Step is the owning step. The message becomes eligible once the session reaches it.
	Step    int     `json:"step" yaml:"step" mapstructure:"step"`
	Speaker Speaker `json:"speaker" yaml:"speaker" mapstructure:"speaker"`
	Text    string  `json:"text,omitempty" yaml:"text,omitempty" mapstructure:"text"`

	// Answer names a question key. When set, the recorded answer is used as the text.
	Answer string `json:"answer,omitempty" yaml:"answer,omitempty" mapstructure:"answer"`
}

// RevealTiming controls the simulated typing pace.
type RevealTiming struct {
	// First applies to the first assistant message of a session.
	First time.Duration `json:"first" yaml:"first" mapstructure:"first"`
	// Next applies to every later assistant message.
	Next time.Duration `json:"next" yaml:"next" mapstructure:"next"`
}

// LoaderSpec configures the loading step phases.
// Phase k (1-based) fires at k*Interval after entering the step; the last one finalizes.
type LoaderSpec struct {
	Phases   []string      `json:"phases,omitempty" yaml:"phases,omitempty" mapstructure:"phases"`
	Interval time.Duration `json:"interval,omitempty" yaml:"interval,omitempty" mapstructure:"interval"`
}

// ArtifactSpec describes the terminal reference code: Prefix followed by a number in [Min, Max].
type ArtifactSpec struct {
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
	Min    int    `json:"min" yaml:"min" mapstructure:"min"`
	Max    int    `json:"max" yaml:"max" mapstructure:"max"`
}

// Range is an inclusive integer range. A zero Range is disabled.
type Range struct {
	Min int `json:"min" yaml:"min" mapstructure:"min"`
	Max int `json:"max" yaml:"max" mapstructure:"max"`
}

// Enabled reports whether the range was configured.
func (r Range) Enabled() bool {
	return r.Min != 0 || r.Max != 0
}

// Countdown display formats.
const (
	CountdownShort  = "m:ss"
	CountdownPadded = "mm:ss"
)

// Script is a complete funnel variant.
type Script struct {
	ID          string `json:"id" yaml:"id" mapstructure:"id"`
	Title       string `json:"title" yaml:"title" mapstructure:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`

	Steps    []StepSpec        `json:"steps" yaml:"steps" mapstructure:"steps"`
	Messages []ScriptedMessage `json:"messages,omitempty" yaml:"messages,omitempty" mapstructure:"messages"`

	Reveal RevealTiming `json:"reveal" yaml:"reveal" mapstructure:"reveal"`
	Loader LoaderSpec   `json:"loader,omitempty" yaml:"loader,omitempty" mapstructure:"loader"`

	// Countdown is the terminal reservation window. Zero disables the countdown.
	Countdown       time.Duration `json:"countdown,omitempty" yaml:"countdown,omitempty" mapstructure:"countdown"`
	CountdownFormat string        `json:"countdown_format,omitempty" yaml:"countdown_format,omitempty" mapstructure:"countdown_format"`

	Artifact ArtifactSpec `json:"artifact" yaml:"artifact" mapstructure:"artifact"`
	Savings  Range        `json:"savings,omitempty" yaml:"savings,omitempty" mapstructure:"savings"`

	// Phone is the default contact number. A session may override it.
	Phone string `json:"phone" yaml:"phone" mapstructure:"phone"`

	// Outcome holds the terminal headline lines shown next to the call action.
	Outcome []string `json:"outcome,omitempty" yaml:"outcome,omitempty" mapstructure:"outcome"`
}

// Step returns the spec for the 1-based ordinal n.
func (s *Script) Step(n int) (StepSpec, bool) {
	if n < 1 || n > len(s.Steps) {
		return StepSpec{}, false
	}
	return s.Steps[n-1], true
}

// TerminalStep returns the ordinal of the terminal step (always the last one in a valid script).
func (s *Script) TerminalStep() int {
	return len(s.Steps)
}

// Questions returns the number of interactive steps.
func (s *Script) Questions() int {
	n := 0
	for _, st := range s.Steps {
		if st.Kind == StepQuestion {
			n++
		}
	}
	return n
}
