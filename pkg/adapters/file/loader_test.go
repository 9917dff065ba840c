package file_test

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/aretw0/lander/pkg/adapters/file"
	"github.com/aretw0/lander/pkg/domain"
	"github.com/aretw0/lander/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const miniYAML = `
title: Mini
steps:
  - kind: question
    key: ok
    options: ["Yes", "No"]
  - kind: loading
  - kind: terminal
messages:
  - {step: 1, speaker: assistant, text: Ready?}
reveal: {first: 1500ms, next: 500ms}
loader:
  interval: 2s
  phases: [Working...]
countdown: 90s
artifact: {prefix: "M-", min: 1, max: 9}
phone: "555"
`

const miniJSON = `{
  "id": "json",
  "steps": [{"kind": "question", "key": "a"}, {"kind": "terminal"}],
  "reveal": {"first": "1s", "next": "1s"},
  "phone": "555"
}`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"funnels/mini.yaml":     {Data: []byte(miniYAML)},
		"funnels/json.json":     {Data: []byte(miniJSON)},
		"funnels/README.md":     {Data: []byte("# not a script")},
		"funnels/nested/x.yaml": {Data: []byte(miniYAML)},
	}
}

func TestLoader_Contract(t *testing.T) {
	ports.RunScriptLoaderContract(t, file.New(testFS(), file.WithDir("funnels")), []string{"mini", "json"})
}

func TestLoader_DecodesDurations(t *testing.T) {
	s, err := file.New(testFS(), file.WithDir("funnels")).Load("mini")
	require.NoError(t, err)

	assert.Equal(t, "mini", s.ID, "id defaults to the file name")
	assert.Equal(t, 1500*time.Millisecond, s.Reveal.First)
	assert.Equal(t, 2*time.Second, s.Loader.Interval)
	assert.Equal(t, 90*time.Second, s.Countdown)
	assert.Equal(t, domain.StepLoading, s.Steps[1].Kind)
}

func TestLoader_Errors(t *testing.T) {
	fsys := fstest.MapFS{
		"typo.yaml":     {Data: []byte("id: typo\nstepz: []\n")},
		"mismatch.yaml": {Data: []byte(miniYAML + "id: other\n")},
		"invalid.yaml":  {Data: []byte("id: invalid\nsteps: []\n")},
		"broken.yaml":   {Data: []byte("id: [unterminated\n")},
	}
	l := file.New(fsys)

	tests := []struct {
		id   string
		want string
	}{
		{"typo", "stepz"},
		{"mismatch", `declares id "other"`},
		{"invalid", "steps"},
		{"broken", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := l.Load(tt.id)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := l.Load("../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrFunnelNotFound)
}
