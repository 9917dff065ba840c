package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/lander/internal/runtime"
	"github.com/aretw0/lander/pkg/adapters/timer"
	"github.com/aretw0/lander/pkg/domain"
	"github.com/aretw0/lander/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScript(unit time.Duration) *domain.Script {
	return &domain.Script{
		ID: "auto",
		Steps: []domain.StepSpec{
			{Kind: domain.StepQuestion, Key: "insured", Prompt: "Are you currently insured?", Options: []string{"YES", "NO"}},
			{Kind: domain.StepQuestion, Key: "cars", Prompt: "How many cars?", Options: []string{"ONE", "2 OR MORE"}},
			{Kind: domain.StepLoading},
			{Kind: domain.StepTerminal},
		},
		Messages: []domain.ScriptedMessage{
			{Step: 1, Speaker: domain.SpeakerAssistant, Text: "Hi there!"},
			{Step: 2, Speaker: domain.SpeakerUser, Answer: "insured"},
			{Step: 2, Speaker: domain.SpeakerAssistant, Text: "Got it."},
			{Step: 3, Speaker: domain.SpeakerUser, Answer: "cars"},
		},
		Reveal:          domain.RevealTiming{First: 2 * unit, Next: unit},
		Loader:          domain.LoaderSpec{Phases: []string{"Comparing Insurance Quotes..."}, Interval: 3 * unit},
		Countdown:       3 * time.Second,
		CountdownFormat: domain.CountdownPadded,
		Artifact:        domain.ArtifactSpec{Prefix: "Q-", Min: 100, Max: 999},
		Savings:         domain.Range{Min: 500, Max: 999},
		Phone:           "1-800-555-0123",
	}
}

func newManualRunner(t *testing.T, opts ...runner.Option) (*runner.Runner, *timer.Manual) {
	t.Helper()
	script := testScript(time.Second)
	require.NoError(t, script.Validate())
	clock := timer.NewManual()
	r := runner.New(runtime.NewEngine(script), "sess-1", "", append([]runner.Option{runner.WithScheduler(clock)}, opts...)...)
	t.Cleanup(r.Close)
	return r, clock
}

func TestRunner_Flow(t *testing.T) {
	r, clock := newManualRunner(t)
	ctx := context.Background()

	snap := r.Snapshot()
	assert.Equal(t, "sess-1", r.SessionID())
	assert.True(t, snap.Typing)
	assert.Equal(t, 1, r.LiveTimers())

	clock.Advance(2 * time.Second)
	snap = r.Snapshot()
	require.True(t, snap.AwaitingInput)

	snap, err := r.Submit(ctx, "insured", "YES")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Step)
	assert.Equal(t, "YES", snap.Messages[1].Text)

	clock.Advance(time.Second)
	_, err = r.Submit(ctx, "", "ONE")
	require.NoError(t, err)
	assert.Equal(t, "Comparing Insurance Quotes...", r.Snapshot().LoaderStatus)

	clock.Advance(3 * time.Second)
	snap = r.Snapshot()
	require.True(t, snap.Terminal)
	assert.Equal(t, "00:03", snap.CountdownDisplay)
	assert.Regexp(t, `^Q-\d{3}$`, snap.ReferenceCode)
	assert.Equal(t, "tel:1-800-555-0123", snap.CallHref)

	clock.Advance(10 * time.Second)
	snap = r.Snapshot()
	assert.Equal(t, "00:00", snap.CountdownDisplay)
	assert.Zero(t, r.LiveTimers())
}

func TestRunner_SubmitOutsideQuestion(t *testing.T) {
	r, _ := newManualRunner(t)
	ctx := context.Background()

	_, err := r.Submit(ctx, "insured", "NO")
	require.NoError(t, err)
	_, err = r.Submit(ctx, "cars", "ONE")
	require.NoError(t, err)

	snap, err := r.Submit(ctx, "cars", "again")
	assert.ErrorIs(t, err, domain.ErrNotInteractive)
	assert.Equal(t, domain.StepLoading, snap.Kind)
	assert.Equal(t, "ONE", snap.Answers["cars"])
}

func TestRunner_CancelledContext(t *testing.T) {
	r, _ := newManualRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Submit(ctx, "insured", "YES")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, r.Snapshot().Step)
}

func TestRunner_CloseReleasesEverything(t *testing.T) {
	r, clock := newManualRunner(t)
	updates, _ := r.Subscribe()
	<-updates // initial snapshot

	require.Equal(t, 1, r.LiveTimers())
	r.Close()
	r.Close()

	assert.Zero(t, clock.Live())
	_, err := r.Submit(context.Background(), "insured", "YES")
	assert.ErrorIs(t, err, domain.ErrSessionClosed)

	_, open := <-updates
	assert.False(t, open, "subscribers are closed with the session")
	select {
	case <-r.Done():
	default:
		t.Fatal("Done() should be closed")
	}
}

// leakyScheduler never cancels, so every stale callback reaches the runner.
type leakyScheduler struct {
	*timer.Manual
}

func (leakyScheduler) Cancel(uint64) int { return 0 }

func TestRunner_StaleTimersAreDiscarded(t *testing.T) {
	clock := leakyScheduler{timer.NewManual()}
	var stale []domain.StaleTimerEvent
	hooks := domain.LifecycleHooks{
		OnStaleTimer: func(_ context.Context, e *domain.StaleTimerEvent) { stale = append(stale, *e) },
	}
	r := runner.New(runtime.NewEngine(testScript(time.Second)), "sess-1", "",
		runner.WithScheduler(clock), runner.WithHooks(hooks))
	defer r.Close()

	// Answer before the first reveal fires: the old reveal is now owned by a dead epoch.
	_, err := r.Submit(context.Background(), "insured", "YES")
	require.NoError(t, err)

	clock.Advance(2 * time.Second)

	require.Len(t, stale, 1)
	assert.Equal(t, uint64(1), stale[0].Owner)
	assert.Equal(t, domain.TimerReveal, stale[0].Timer)

	snap := r.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "Hi there!", snap.Messages[0].Text)
	assert.Equal(t, "YES", snap.Messages[1].Text)
}

func TestRunner_Hooks(t *testing.T) {
	var mu sync.Mutex
	var entered, left []int
	reveals, terminals := 0, 0
	hooks := domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) { mu.Lock(); entered = append(entered, e.Step); mu.Unlock() },
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) { mu.Lock(); left = append(left, e.Step); mu.Unlock() },
		OnReveal:    func(context.Context, *domain.RevealEvent) { mu.Lock(); reveals++; mu.Unlock() },
		OnTerminal:  func(context.Context, *domain.TerminalEvent) { mu.Lock(); terminals++; mu.Unlock() },
	}
	r, clock := newManualRunner(t, runner.WithHooks(hooks))
	ctx := context.Background()

	clock.Advance(2 * time.Second)
	_, _ = r.Submit(ctx, "", "NO")
	clock.Advance(time.Second)
	_, _ = r.Submit(ctx, "", "2 OR MORE")
	clock.Advance(time.Minute)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4}, entered)
	assert.Equal(t, []int{1, 2, 3}, left)
	assert.Equal(t, 4, reveals)
	assert.Equal(t, 1, terminals)
}

func TestRunner_SubscribeSeesLatest(t *testing.T) {
	r, clock := newManualRunner(t, runner.WithSubscriberBuffer(1))
	updates, stop := r.Subscribe()
	defer stop()

	clock.Advance(2 * time.Second)
	_, err := r.Submit(context.Background(), "", "YES")
	require.NoError(t, err)

	// The buffer holds one snapshot, so only the newest survives.
	snap := <-updates
	assert.Equal(t, 2, snap.Step)
}

func TestPlay_TextHandler(t *testing.T) {
	script := testScript(5 * time.Millisecond)
	script.Countdown = 0
	script.Outcome = []string{"You could save up to $967!"}
	r := runner.New(runtime.NewEngine(script), "sess-1", "")
	defer r.Close()

	in := strings.NewReader("1\n2\n")
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := runner.Play(ctx, r, runner.NewTextHandler(in, &out))
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Agent: Hi there!")
	assert.Contains(t, text, "  1) YES")
	assert.Contains(t, text, "You: YES")
	assert.Contains(t, text, "You: 2 OR MORE")
	assert.Contains(t, text, "... Comparing Insurance Quotes...")
	assert.Contains(t, text, "You could save up to $967!")
	assert.Contains(t, text, "Call now: 1-800-555-0123")
	assert.True(t, r.Snapshot().Terminal)
}

func TestPlay_JSONHandler(t *testing.T) {
	script := testScript(5 * time.Millisecond)
	script.Countdown = 0
	r := runner.New(runtime.NewEngine(script), "sess-1", "")
	defer r.Close()

	in := strings.NewReader("\"NO\"\nONE\n")
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, runner.Play(ctx, r, runner.NewJSONHandler(in, &out)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)

	var first domain.SnapshotDiff
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "sess-1", first.SessionID)
	require.NotNil(t, first.Step)
	assert.Equal(t, 1, *first.Step)

	var last domain.SnapshotDiff
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.Equal(t, "NO", r.Snapshot().Answers["insured"])
	assert.Equal(t, "ONE", r.Snapshot().Answers["cars"])
}

// toTerminal answers both questions and lets the loader finish.
func toTerminal(t *testing.T, r *runner.Runner, clock *timer.Manual) {
	t.Helper()
	ctx := context.Background()
	clock.Advance(2 * time.Second)
	_, err := r.Submit(ctx, "", "YES")
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = r.Submit(ctx, "", "ONE")
	require.NoError(t, err)
	clock.Advance(3 * time.Second)
	snap := r.Snapshot()
	require.True(t, snap.Terminal)
	require.False(t, snap.Typing)
}

func TestRunner_TickWithInternalClock(t *testing.T) {
	r, clock := newManualRunner(t)
	ctx := context.Background()
	toTerminal(t, r, clock)
	start := r.Snapshot().Countdown
	require.Equal(t, 3, start)

	clock.Advance(time.Second)
	snap, err := r.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, start-1, snap.Countdown, "one elapsed second decrements once")

	before := r.LastActive()
	time.Sleep(time.Millisecond)
	_, err = r.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, start-1, r.Snapshot().Countdown)
	assert.True(t, r.LastActive().After(before), "a view tick keeps the session active")
}

func TestRunner_TickWithExternalClock(t *testing.T) {
	r, clock := newManualRunner(t, runner.WithExternalTicks())
	ctx := context.Background()
	toTerminal(t, r, clock)
	start := r.Snapshot().Countdown
	require.Equal(t, 3, start)
	assert.Zero(t, r.LiveTimers(), "no countdown interval is armed")

	clock.Advance(time.Second)
	snap, err := r.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, start-1, snap.Countdown, "one elapsed second decrements once")

	for i := 0; i < 5; i++ {
		snap, err = r.Tick(ctx)
		require.NoError(t, err)
	}
	assert.Zero(t, snap.Countdown)
	assert.Equal(t, "00:00", snap.CountdownDisplay)
}

func TestRunner_TickBeforeTerminalIsNoop(t *testing.T) {
	r, _ := newManualRunner(t, runner.WithExternalTicks())
	snap, err := r.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Step)
	assert.False(t, snap.Terminal)
}
