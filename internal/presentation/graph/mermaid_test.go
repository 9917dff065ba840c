package graph_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aretw0/lander/internal/presentation/graph"
	"github.com/aretw0/lander/pkg/domain"
)

func quiz() *domain.Script {
	return &domain.Script{
		ID: "quiz",
		Steps: []domain.StepSpec{
			{Kind: domain.StepQuestion, Key: "carrier", Options: []string{"GEICO", `"Other"`}},
			{Kind: domain.StepQuestion, Key: "homeowner"},
			{Kind: domain.StepLoading},
			{Kind: domain.StepTerminal},
		},
		Loader:    domain.LoaderSpec{Phases: []string{"a", "b", "c"}, Interval: 850 * time.Millisecond},
		Countdown: 5 * time.Minute,
	}
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(quiz(), nil)

	for _, want := range []string{
		"graph TD\n",
		`s1[/"1. carrier"/]`,
		`s1 -- "GEICO" --> s2`,
		`s1 -- "'Other'" --> s2`,
		"s2 --> s3",
		`s3[["3. loading <br/> 3 phases x 850ms"]]`,
		"s3 -.-> s4",
		`s4(("4. terminal <br/> ⏱️ 5m0s"))`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
		}
	}
	if strings.Contains(got, "classDef") {
		t.Error("no overlay requested, but styles were emitted")
	}
	if strings.Contains(got, "s4 -") {
		t.Error("terminal step must have no outgoing edge")
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	got := graph.GenerateMermaid(quiz(), &graph.GraphOverlay{CurrentStep: 3})

	for _, want := range []string{
		"class s1 visited;",
		"class s2 visited;",
		"class s3 current;",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
		}
	}
	if strings.Contains(got, "class s4") {
		t.Error("future steps must not be styled")
	}
}
