package domain

import (
	"strings"
	"testing"
	"time"
)

func validScript() *Script {
	return &Script{
		ID: "quiz",
		Steps: []StepSpec{
			{Kind: StepQuestion, Key: "carrier", Options: []string{"GEICO", "Other"}},
			{Kind: StepQuestion, Key: "homeowner", Options: []string{"Yes", "No"}},
			{Kind: StepLoading},
			{Kind: StepTerminal},
		},
		Messages: []ScriptedMessage{
			{Step: 1, Speaker: SpeakerAssistant, Text: "Carrier?"},
			{Step: 2, Speaker: SpeakerUser, Answer: "carrier"},
		},
		Loader:   LoaderSpec{Phases: []string{"a", "b", "c"}, Interval: 850 * time.Millisecond},
		Artifact: ArtifactSpec{Prefix: "SOL-", Min: 1000, Max: 9999},
	}
}

func TestValidate_Success(t *testing.T) {
	if err := validScript().Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Script)
		want   string
	}{
		{
			name:   "Missing ID",
			mutate: func(s *Script) { s.ID = "" },
			want:   "id: required",
		},
		{
			name:   "Terminal Not Last",
			mutate: func(s *Script) { s.Steps = append(s.Steps, StepSpec{Kind: StepQuestion, Key: "late"}) },
			want:   "terminal must be the last step",
		},
		{
			name:   "Duplicate Key",
			mutate: func(s *Script) { s.Steps[1].Key = "carrier" },
			want:   "duplicate key",
		},
		{
			name:   "Loader Without Phases",
			mutate: func(s *Script) { s.Loader.Phases = nil },
			want:   "loader.phases",
		},
		{
			name: "Answer Echo Before Recording",
			mutate: func(s *Script) {
				s.Messages = append(s.Messages, ScriptedMessage{Step: 2, Speaker: SpeakerUser, Answer: "homeowner"})
			},
			want: "is recorded at step 2",
		},
		{
			name: "Messages Out Of Order",
			mutate: func(s *Script) {
				s.Messages = append(s.Messages, ScriptedMessage{Step: 1, Speaker: SpeakerAssistant, Text: "late"})
			},
			want: "must be ordered by step",
		},
		{
			name:   "Artifact Range",
			mutate: func(s *Script) { s.Artifact.Min = 10000 },
			want:   "artifact",
		},
		{
			name:   "Unknown Countdown Format",
			mutate: func(s *Script) { s.CountdownFormat = "ss" },
			want:   "countdown_format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validScript()
			tt.mutate(s)

			err := s.Validate()
			if err == nil {
				t.Fatal("Validate() should return error")
			}
			if len(ValidationErrors(err)) == 0 {
				t.Fatalf("error should be *AggregateError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err.Error(), tt.want)
			}
		})
	}
}
