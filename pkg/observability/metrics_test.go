package observability_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/lander/internal/runtime"
	"github.com/aretw0/lander/pkg/adapters/timer"
	"github.com/aretw0/lander/pkg/domain"
	"github.com/aretw0/lander/pkg/observability"
	"github.com/aretw0/lander/pkg/runner"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script() *domain.Script {
	return &domain.Script{
		ID: "quiz",
		Steps: []domain.StepSpec{
			{Kind: domain.StepQuestion, Key: "carrier"},
			{Kind: domain.StepLoading},
			{Kind: domain.StepTerminal},
		},
		Messages: []domain.ScriptedMessage{
			{Step: 1, Speaker: domain.SpeakerAssistant, Text: "Carrier?"},
			{Step: 2, Speaker: domain.SpeakerUser, Answer: "carrier"},
		},
		Reveal:   domain.RevealTiming{First: time.Second, Next: time.Second},
		Loader:   domain.LoaderSpec{Phases: []string{"a", "b"}, Interval: time.Second},
		Artifact: domain.ArtifactSpec{Prefix: "SOL-", Min: 1000, Max: 9999},
	}
}

func play(t *testing.T, hooks domain.LifecycleHooks) {
	t.Helper()
	clock := timer.NewManual()
	r := runner.New(runtime.NewEngine(script()), "sess-1", "",
		runner.WithScheduler(clock), runner.WithHooks(hooks))

	clock.Advance(time.Second)
	_, err := r.Submit(context.Background(), "", "GEICO")
	require.NoError(t, err)
	clock.Advance(2 * time.Second)
	require.True(t, r.Snapshot().Terminal)
	r.Close()
}

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	m.TrackLiveSessions(func() int { return 3 })

	play(t, m.Hooks())

	body := scrape(t, m)
	assert.Contains(t, body, `lander_sessions_started_total{funnel="quiz"} 1`)
	assert.Contains(t, body, `lander_step_enter_total{funnel="quiz",kind="loading",step="2"} 1`)
	assert.Contains(t, body, `lander_messages_revealed_total{funnel="quiz",speaker="assistant"} 1`)
	assert.Contains(t, body, `lander_messages_revealed_total{funnel="quiz",speaker="user"} 1`)
	assert.Contains(t, body, `lander_completions_total{funnel="quiz"} 1`)
	assert.Contains(t, body, `lander_sessions_ended_total{completed="true",funnel="quiz"} 1`)
	assert.Contains(t, body, `lander_sessions_live 3`)

	// question and loading were both left once.
	n, err := testutil.GatherAndCount(m.Registry(), "lander_step_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	play(t, observability.LogHooks(logger))

	out := buf.String()
	assert.Contains(t, out, "msg=step_enter")
	assert.Contains(t, out, "msg=reveal")
	assert.Contains(t, out, "msg=terminal")
	assert.Contains(t, out, "reference_code=SOL-")
	assert.Contains(t, out, "msg=session_end")
	assert.Contains(t, out, "completed=true")
}
