package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/lander/pkg/domain"
)

// GraphOverlay contains session state to visualize on the graph.
type GraphOverlay struct {
	// CurrentStep is the 1-based ordinal the session sits on. Earlier steps are drawn as visited.
	CurrentStep int
}

// GenerateMermaid produces a Mermaid flowchart of a funnel script.
// It applies semantic styling:
// - Question: [/Parallelogram/] with one labelled edge per option
// - Loading: [[Subroutine]] annotated with its phase count and interval
// - Terminal: ((Circle)) annotated with the countdown
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(script *domain.Script, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, step := range script.Steps {
		n := i + 1
		id := nodeID(n)
		label := escape(stepLabel(n, step))

		switch step.Kind {
		case domain.StepQuestion:
			sb.WriteString(fmt.Sprintf("    %s[/\"%s\"/]\n", id, label))
		case domain.StepLoading:
			sb.WriteString(fmt.Sprintf("    %s[[\"%s <br/> %d phases x %s\"]]\n", id, label, len(script.Loader.Phases), script.Loader.Interval))
		case domain.StepTerminal:
			if script.Countdown > 0 {
				sb.WriteString(fmt.Sprintf("    %s((\"%s <br/> ⏱️ %s\"))\n", id, label, script.Countdown))
			} else {
				sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", id, label))
			}
		default:
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, label))
		}

		if n == len(script.Steps) {
			continue
		}
		next := nodeID(n + 1)
		switch {
		case step.Kind == domain.StepQuestion && len(step.Options) > 0:
			for _, opt := range step.Options {
				sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", id, escape(opt), next))
			}
		case step.Kind == domain.StepLoading:
			// Advances on its own once the last phase fires.
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", id, next))
		default:
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", id, next))
		}
	}

	if overlay != nil && overlay.CurrentStep > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for n := 1; n < overlay.CurrentStep && n <= len(script.Steps); n++ {
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", nodeID(n)))
		}
		if overlay.CurrentStep <= len(script.Steps) {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", nodeID(overlay.CurrentStep)))
		}
	}

	return sb.String()
}

func nodeID(n int) string {
	return fmt.Sprintf("s%d", n)
}

func stepLabel(n int, step domain.StepSpec) string {
	switch {
	case step.Key != "":
		return fmt.Sprintf("%d. %s", n, step.Key)
	default:
		return fmt.Sprintf("%d. %s", n, step.Kind)
	}
}

// escape keeps labels from closing the quoted Mermaid string.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
