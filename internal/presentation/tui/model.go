package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/lander/pkg/domain"
	"github.com/aretw0/lander/pkg/runner"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	assistantStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#818cf8")).
			Padding(0, 1).
			MaxWidth(60)
	userStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#f59e0b")).
			Foreground(lipgloss.Color("#000000")).
			Padding(0, 1).
			MarginLeft(24)
	promptStyle   = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	terminalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#22c55e")).
			Padding(0, 2)
	countdownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
)

type snapshotMsg domain.Snapshot

type closedMsg struct{}

type submitErrMsg struct{ err error }

// Model is the interactive bubbletea view of one session.
type Model struct {
	runner  *runner.Runner
	updates <-chan domain.Snapshot
	stop    func()
	render  func(string) (string, error)

	snap     domain.Snapshot
	input    textinput.Model
	spinner  spinner.Model
	selected int
	// pending is set from a submit until a snapshot of the next step (or the error) arrives,
	// so an answer is never applied to a step the view has not shown yet.
	pending  bool
	err      error
	width    int
	quitting bool
}

// ModelOption configures the Model.
type ModelOption func(*Model)

// WithMarkdown renders the terminal outcome through fn (see NewRenderer).
func WithMarkdown(fn func(string) (string, error)) ModelOption {
	return func(m *Model) {
		m.render = fn
	}
}

// NewModel subscribes to r. The subscription is released when the model quits.
func NewModel(r *runner.Runner, opts ...ModelOption) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your answer"
	ti.CharLimit = runner.DefaultMaxAnswerSize
	ti.Width = 40
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	updates, stop := r.Subscribe()
	m := Model{
		runner:  r,
		updates: updates,
		stop:    stop,
		snap:    r.Snapshot(),
		input:   ti,
		spinner: sp,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.wait(), m.spinner.Tick, textinput.Blink)
}

func (m Model) wait() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.updates
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) submit(value string) tea.Cmd {
	r := m.runner
	return func() tea.Msg {
		if _, err := r.Submit(context.Background(), "", value); err != nil {
			return submitErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		prevStep := m.snap.Step
		m.snap = domain.Snapshot(msg)
		if m.snap.Step != prevStep {
			m.selected = 0
			m.input.SetValue("")
			m.pending = false
		}
		return m, m.wait()

	case closedMsg:
		return m.quit()

	case submitErrMsg:
		m.err = msg.err
		m.pending = false
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		m.err = nil
		switch msg.String() {
		case "ctrl+c", "esc":
			return m.quit()
		case "q":
			if m.snap.Terminal {
				return m.quit()
			}
		}
		if !m.snap.AwaitingInput || m.pending {
			return m, nil
		}
		if len(m.snap.Options) > 0 {
			return m.handleChoice(msg)
		}
		if msg.Type == tea.KeyEnter {
			value, err := runner.SanitizeAnswer(m.input.Value())
			if err != nil {
				m.err = err
				return m, nil
			}
			m.input.SetValue("")
			m.pending = true
			return m, m.submit(value)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleChoice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.snap.Options)
	switch msg.String() {
	case "up", "k":
		m.selected = (m.selected - 1 + n) % n
	case "down", "j", "tab":
		m.selected = (m.selected + 1) % n
	case "enter":
		m.pending = true
		return m, m.submit(m.snap.Options[m.selected])
	default:
		// Number keys pick an option directly.
		if choice := runner.NormalizeChoice(msg.String(), m.snap.Options); choice != msg.String() {
			m.pending = true
			return m, m.submit(choice)
		}
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.stop()
	return m, tea.Quit
}

// Snapshot returns the last snapshot the model rendered.
func (m Model) Snapshot() domain.Snapshot {
	return m.snap
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var sb strings.Builder

	for _, msg := range m.snap.Messages {
		if msg.Speaker == domain.SpeakerUser {
			sb.WriteString(userStyle.Render(msg.Text))
		} else {
			sb.WriteString(assistantStyle.Render(msg.Text))
		}
		sb.WriteString("\n")
	}

	switch {
	case m.snap.Typing:
		sb.WriteString(dimStyle.Render(m.spinner.View()+" typing...") + "\n")
	case m.snap.Kind == domain.StepLoading && m.snap.LoaderStatus != "":
		sb.WriteString(m.spinner.View() + " " + m.snap.LoaderStatus + "\n")
	}

	if m.snap.AwaitingInput {
		sb.WriteString("\n")
		if m.snap.Prompt != "" {
			sb.WriteString(promptStyle.Render(m.snap.Prompt) + "\n")
		}
		if len(m.snap.Options) > 0 {
			for i, opt := range m.snap.Options {
				line := fmt.Sprintf("  %d) %s", i+1, opt)
				if i == m.selected {
					line = selectedStyle.Render(fmt.Sprintf("> %d) %s", i+1, opt))
				}
				sb.WriteString(line + "\n")
			}
		} else {
			sb.WriteString(m.input.View() + "\n")
		}
	}

	if m.snap.Terminal {
		sb.WriteString("\n" + m.terminalView() + "\n")
	}

	if m.err != nil {
		sb.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	sb.WriteString("\n" + dimStyle.Render(m.help()))
	return sb.String()
}

func (m Model) terminalView() string {
	var sb strings.Builder
	if m.snap.Prompt != "" {
		sb.WriteString(promptStyle.Render(m.snap.Prompt) + "\n")
	}
	if len(m.snap.Outcome) > 0 {
		outcome := OutcomeMarkdown(m.snap.Outcome)
		if m.render != nil {
			if out, err := m.render(outcome); err == nil {
				outcome = out
			}
		}
		sb.WriteString(strings.TrimRight(outcome, "\n") + "\n")
	}
	if m.snap.ReferenceCode != "" {
		sb.WriteString("Reference: " + m.snap.ReferenceCode + "\n")
	}
	if m.snap.Savings > 0 {
		sb.WriteString(fmt.Sprintf("Estimated savings: $%d\n", m.snap.Savings))
	}
	if m.snap.CountdownDisplay != "" {
		sb.WriteString("Your spot is reserved for " + countdownStyle.Render(m.snap.CountdownDisplay) + "\n")
	}
	sb.WriteString("Call now: " + m.snap.Phone)
	return terminalStyle.Render(sb.String())
}

func (m Model) help() string {
	switch {
	case m.snap.Terminal:
		return "q: quit"
	case m.snap.AwaitingInput && len(m.snap.Options) > 0:
		return "↑/↓: choose • 1-9: pick • enter: answer • esc: quit"
	case m.snap.AwaitingInput:
		return "enter: answer • esc: quit"
	default:
		return "esc: quit"
	}
}

// Run drives r interactively until the user quits or ctx is cancelled.
// It returns the last rendered snapshot.
func Run(ctx context.Context, r *runner.Runner, opts ...ModelOption) (domain.Snapshot, error) {
	p := tea.NewProgram(NewModel(r, opts...), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(Model); ok {
		m.stop()
		if err != nil && ctx.Err() != nil {
			return m.snap, ctx.Err()
		}
		return m.snap, err
	}
	return r.Snapshot(), err
}
