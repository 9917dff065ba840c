package domain

import (
	"errors"
	"fmt"
)

// ValidationError represents a single script consistency failure.
type ValidationError struct {
	Field  string // e.g. "steps[2].key"
	Reason string // Human-readable reason for failure
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// Validate checks the script shape: one or more questions, an optional loading
// step and a single terminal step, in that order.
func (s *Script) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if s.ID == "" {
		fail("id", "required")
	}
	if len(s.Steps) < 2 {
		fail("steps", "need at least one question and a terminal step, got %d steps", len(s.Steps))
	}

	keys := make(map[string]int) // key -> step ordinal
	loading := 0
	for i, st := range s.Steps {
		n := i + 1
		field := fmt.Sprintf("steps[%d]", i)
		last := n == len(s.Steps)

		switch st.Kind {
		case StepQuestion:
			if loading > 0 {
				fail(field+".kind", "question after the loading step")
			}
			if st.Key == "" {
				fail(field+".key", "required for question steps")
			} else if prev, dup := keys[st.Key]; dup {
				fail(field+".key", "duplicate key %q (also step %d)", st.Key, prev)
			} else {
				keys[st.Key] = n
			}
		case StepLoading:
			loading++
			if loading > 1 {
				fail(field+".kind", "only one loading step is allowed")
			}
			if n != len(s.Steps)-1 {
				fail(field+".kind", "loading must immediately precede the terminal step")
			}
			if n == 1 {
				fail(field+".kind", "the funnel must start with a question")
			}
		case StepTerminal:
			if !last {
				fail(field+".kind", "terminal must be the last step")
			}
		default:
			fail(field+".kind", "unknown step kind %q", st.Kind)
		}
		if last && st.Kind != StepTerminal {
			fail(field+".kind", "last step must be terminal, got %q", st.Kind)
		}
		if st.TypingDelay < 0 {
			fail(field+".typing_delay", "must not be negative")
		}
	}

	prevStep := 0
	for i, m := range s.Messages {
		field := fmt.Sprintf("messages[%d]", i)
		if m.Step < 1 || m.Step > len(s.Steps) {
			fail(field+".step", "out of range [1, %d]", len(s.Steps))
			continue
		}
		if m.Step < prevStep {
			fail(field+".step", "messages must be ordered by step (%d after %d)", m.Step, prevStep)
		}
		prevStep = m.Step

		switch m.Speaker {
		case SpeakerAssistant:
			if m.Text == "" {
				fail(field+".text", "assistant messages need text")
			}
		case SpeakerUser:
			if m.Answer == "" && m.Text == "" {
				fail(field, "user messages need an answer key or text")
			}
			if m.Answer != "" {
				owner, ok := keys[m.Answer]
				if !ok {
					fail(field+".answer", "unknown answer key %q", m.Answer)
				} else if owner >= m.Step {
					fail(field+".answer", "answer %q is recorded at step %d, not before step %d", m.Answer, owner, m.Step)
				}
			}
		default:
			fail(field+".speaker", "unknown speaker %q", m.Speaker)
		}
	}

	if loading > 0 {
		if len(s.Loader.Phases) == 0 {
			fail("loader.phases", "required when the funnel has a loading step")
		}
		if s.Loader.Interval <= 0 {
			fail("loader.interval", "must be positive when the funnel has a loading step")
		}
	} else if len(s.Loader.Phases) > 0 {
		fail("loader", "phases configured but the funnel has no loading step")
	}

	if s.Reveal.First < 0 || s.Reveal.Next < 0 {
		fail("reveal", "delays must not be negative")
	}
	if s.Countdown < 0 {
		fail("countdown", "must not be negative")
	}
	switch s.CountdownFormat {
	case "", CountdownShort, CountdownPadded:
	default:
		fail("countdown_format", "expected %q or %q", CountdownShort, CountdownPadded)
	}
	if s.Artifact.Min > s.Artifact.Max {
		fail("artifact", "min %d exceeds max %d", s.Artifact.Min, s.Artifact.Max)
	}
	if s.Savings.Min > s.Savings.Max {
		fail("savings", "min %d exceeds max %d", s.Savings.Min, s.Savings.Max)
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
