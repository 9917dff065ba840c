package domain

import (
	"reflect"
)

// SnapshotDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Step          *int      `json:"step,omitempty"`
	Kind          *StepKind `json:"kind,omitempty"`
	Typing        *bool     `json:"typing,omitempty"`
	AwaitingInput *bool     `json:"awaiting_input,omitempty"`
	LoaderStatus  *string   `json:"loader_status,omitempty"`
	ReferenceCode *string   `json:"reference_code,omitempty"`
	Countdown     *int      `json:"countdown,omitempty"`
	Display       *string   `json:"countdown_display,omitempty"`
	CallHref      *string   `json:"call_href,omitempty"`
	Terminal      *bool     `json:"terminal,omitempty"`

	// Answers contains only added or changed keys.
	Answers map[string]string `json:"answers,omitempty"`

	// Appended contains transcript lines revealed since the old snapshot.
	// The transcript is append-only, so a suffix is enough.
	Appended []Message `json:"appended,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}

	diff := &SnapshotDiff{SessionID: newSnap.SessionID}
	fresh := oldSnap == nil
	if fresh {
		oldSnap = &Snapshot{}
	}

	if fresh || oldSnap.Step != newSnap.Step {
		diff.Step = &newSnap.Step
	}
	if fresh || oldSnap.Kind != newSnap.Kind {
		diff.Kind = &newSnap.Kind
	}
	if fresh || oldSnap.Typing != newSnap.Typing {
		diff.Typing = &newSnap.Typing
	}
	if fresh || oldSnap.AwaitingInput != newSnap.AwaitingInput {
		diff.AwaitingInput = &newSnap.AwaitingInput
	}
	if oldSnap.LoaderStatus != newSnap.LoaderStatus {
		diff.LoaderStatus = &newSnap.LoaderStatus
	}
	if oldSnap.ReferenceCode != newSnap.ReferenceCode {
		diff.ReferenceCode = &newSnap.ReferenceCode
	}
	if oldSnap.Countdown != newSnap.Countdown {
		diff.Countdown = &newSnap.Countdown
	}
	if oldSnap.CountdownDisplay != newSnap.CountdownDisplay {
		diff.Display = &newSnap.CountdownDisplay
	}
	if oldSnap.CallHref != newSnap.CallHref {
		diff.CallHref = &newSnap.CallHref
	}
	if oldSnap.Terminal != newSnap.Terminal {
		diff.Terminal = &newSnap.Terminal
	}

	diff.Answers = diffAnswers(oldSnap.Answers, newSnap.Answers)
	diff.Appended = diffTranscript(oldSnap.Messages, newSnap.Messages)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffAnswers(old, new map[string]string) map[string]string {
	delta := make(map[string]string)
	for k, v := range new {
		if ov, ok := old[k]; !ok || ov != v {
			delta[k] = v
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffTranscript assumes append-only behavior. A rewritten prefix yields the whole new transcript.
func diffTranscript(old, new []Message) []Message {
	if len(new) <= len(old) {
		return nil
	}
	if !reflect.DeepEqual(old, new[:len(old)]) {
		return new
	}
	return new[len(old):]
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.Step == nil &&
		d.Kind == nil &&
		d.Typing == nil &&
		d.AwaitingInput == nil &&
		d.LoaderStatus == nil &&
		d.ReferenceCode == nil &&
		d.Countdown == nil &&
		d.Display == nil &&
		d.CallHref == nil &&
		d.Terminal == nil &&
		len(d.Answers) == 0 &&
		len(d.Appended) == 0
}
