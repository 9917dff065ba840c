package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	hello := Message{Step: 1, Speaker: SpeakerAssistant, Text: "Hey"}
	yes := Message{Step: 2, Speaker: SpeakerUser, Text: "Yes"}

	tests := []struct {
		name     string
		old      *Snapshot
		new      *Snapshot
		wantDiff *SnapshotDiff // nil means we expect no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &Snapshot{
				SessionID: "sess-1",
				Step:      1,
				Kind:      StepQuestion,
				Messages:  []Message{hello},
			},
			wantDiff: &SnapshotDiff{
				SessionID: "sess-1",
				Step:      &[]int{1}[0],
				Appended:  []Message{hello},
			},
		},
		{
			name: "No Changes",
			old: &Snapshot{
				SessionID: "sess-1",
				Step:      1,
				Kind:      StepQuestion,
				Messages:  []Message{hello},
				Answers:   map[string]string{},
			},
			new: &Snapshot{
				SessionID: "sess-1",
				Step:      1,
				Kind:      StepQuestion,
				Messages:  []Message{hello},
				Answers:   map[string]string{},
			},
			wantDiff: nil,
		},
		{
			name: "Answer Recorded & Transcript Append",
			old: &Snapshot{
				SessionID: "sess-1",
				Step:      1,
				Messages:  []Message{hello},
				Answers:   map[string]string{},
			},
			new: &Snapshot{
				SessionID: "sess-1",
				Step:      2,
				Messages:  []Message{hello, yes},
				Answers:   map[string]string{"start": "Yes"},
			},
			wantDiff: &SnapshotDiff{
				SessionID: "sess-1",
				Step:      &[]int{2}[0],
				Answers:   map[string]string{"start": "Yes"},
				Appended:  []Message{yes},
			},
		},
		{
			name: "Countdown Tick",
			old: &Snapshot{
				SessionID:        "sess-1",
				Step:             4,
				Countdown:        120,
				CountdownDisplay: "2:00",
			},
			new: &Snapshot{
				SessionID:        "sess-1",
				Step:             4,
				Countdown:        119,
				CountdownDisplay: "1:59",
			},
			wantDiff: &SnapshotDiff{
				SessionID: "sess-1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %+v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("Diff() = nil, want %+v", tt.wantDiff)
			}

			if got.SessionID != tt.wantDiff.SessionID {
				t.Errorf("Diff().SessionID = %v, want %v", got.SessionID, tt.wantDiff.SessionID)
			}
			if !reflect.DeepEqual(got.Answers, tt.wantDiff.Answers) {
				t.Errorf("Diff().Answers = %v, want %v", got.Answers, tt.wantDiff.Answers)
			}
			if !reflect.DeepEqual(got.Appended, tt.wantDiff.Appended) {
				t.Errorf("Diff().Appended = %v, want %v", got.Appended, tt.wantDiff.Appended)
			}
			if tt.wantDiff.Step != nil && !equalPtr(got.Step, tt.wantDiff.Step) {
				t.Errorf("Diff().Step = %v, want %v", got.Step, *tt.wantDiff.Step)
			}
		})
	}
}

func TestDiff_CountdownFields(t *testing.T) {
	old := &Snapshot{SessionID: "s", Countdown: 1, CountdownDisplay: "0:01"}
	new := &Snapshot{SessionID: "s", Countdown: 0, CountdownDisplay: "0:00"}

	got := Diff(old, new)
	if got == nil {
		t.Fatal("Expected diff, got nil")
	}
	if got.Countdown == nil || *got.Countdown != 0 {
		t.Errorf("Countdown = %v, want 0", got.Countdown)
	}
	if got.Display == nil || *got.Display != "0:00" {
		t.Errorf("Display = %v, want 0:00", got.Display)
	}
}

func TestDiff_RewrittenTranscript(t *testing.T) {
	old := &Snapshot{Messages: []Message{{Step: 1, Text: "a"}}}
	new := &Snapshot{Messages: []Message{{Step: 1, Text: "b"}, {Step: 1, Text: "c"}}}

	got := Diff(old, new)
	if got == nil || len(got.Appended) != 2 {
		t.Fatalf("Expected whole transcript on rewrite, got %+v", got)
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Empty Answers Omitted", func(t *testing.T) {
		s1 := &Snapshot{Step: 1, Answers: map[string]string{"a": "1"}}
		s2 := &Snapshot{Step: 2, Answers: map[string]string{"a": "1"}}
		diff := Diff(s1, s2)

		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}
		bytes, _ := json.Marshal(diff)
		if strings.Contains(string(bytes), `"answers"`) {
			t.Errorf("JSON should not contain 'answers' when unchanged, got: %s", string(bytes))
		}
	})

	t.Run("Typing Off Serialized", func(t *testing.T) {
		s1 := &Snapshot{Typing: true}
		s2 := &Snapshot{Typing: false}
		diff := Diff(s1, s2)

		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}
		bytes, _ := json.Marshal(diff)
		if !strings.Contains(string(bytes), `"typing":false`) {
			t.Errorf("JSON should carry typing=false, got: %s", string(bytes))
		}
	})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
