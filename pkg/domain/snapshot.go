package domain

// Snapshot is the read-only view of a session handed to renderers.
type Snapshot struct {
	SessionID string   `json:"session_id"`
	FunnelID  string   `json:"funnel_id"`
	Step      int      `json:"step"`
	Steps     int      `json:"steps"`
	Kind      StepKind `json:"kind"`

	Prompt  string   `json:"prompt,omitempty"`
	Options []string `json:"options,omitempty"`

	Answers  map[string]string `json:"answers"`
	Messages []Message         `json:"messages"`

	Typing bool `json:"typing"`
	// AwaitingInput is true on a question step once all of its messages are shown.
	AwaitingInput bool `json:"awaiting_input"`

	LoaderStage  int    `json:"loader_stage"`
	LoaderStatus string `json:"loader_status,omitempty"`

	ReferenceCode string   `json:"reference_code,omitempty"`
	Savings       int      `json:"savings,omitempty"`
	Outcome       []string `json:"outcome,omitempty"`

	Countdown        int    `json:"countdown"`
	CountdownDisplay string `json:"countdown_display,omitempty"`

	Phone    string `json:"phone"`
	CallHref string `json:"call_href,omitempty"`
	Terminal bool   `json:"terminal"`
}
