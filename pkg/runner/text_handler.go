package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/lander/pkg/domain"
)

// TextHandler implements a plain line-oriented console.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	inputChan chan inputResult
	startOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Output prints what changed: new transcript lines, loader phases, the choices of a
// question once it awaits input and the terminal result.
func (h *TextHandler) Output(ctx context.Context, snap domain.Snapshot, diff *domain.SnapshotDiff) error {
	for _, m := range diff.Appended {
		if err := h.line(m); err != nil {
			return err
		}
	}
	if diff.LoaderStatus != nil && *diff.LoaderStatus != "" {
		fmt.Fprintf(h.Writer, "... %s\n", *diff.LoaderStatus)
	}
	if diff.AwaitingInput != nil && *diff.AwaitingInput {
		if snap.Prompt != "" {
			fmt.Fprintln(h.Writer, snap.Prompt)
		}
		for i, opt := range snap.Options {
			fmt.Fprintf(h.Writer, "  %d) %s\n", i+1, opt)
		}
		fmt.Fprint(h.Writer, "> ")
	}
	if diff.Terminal != nil && *diff.Terminal {
		for _, line := range snap.Outcome {
			fmt.Fprintln(h.Writer, line)
		}
		if snap.ReferenceCode != "" {
			fmt.Fprintf(h.Writer, "Reference: %s\n", snap.ReferenceCode)
		}
		if snap.Savings > 0 {
			fmt.Fprintf(h.Writer, "Estimated savings: $%d\n", snap.Savings)
		}
		fmt.Fprintf(h.Writer, "Call now: %s\n", snap.Phone)
	}
	if diff.Display != nil && (diff.Terminal != nil || snap.Countdown == 0) {
		fmt.Fprintf(h.Writer, "Your spot is reserved for %s\n", *diff.Display)
	}
	return nil
}

func (h *TextHandler) line(m domain.Message) error {
	text := m.Text
	who := "You"
	if m.Speaker == domain.SpeakerAssistant {
		who = "Agent"
		if h.Renderer != nil {
			rendered, err := h.Renderer(text)
			if err == nil {
				text = rendered
			}
		}
	}
	_, err := fmt.Fprintf(h.Writer, "%s: %s\n", who, strings.TrimSpace(text))
	return err
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honour context cancellation.
// A line nobody asks for parks the pump until the next Input or Close.
func (h *TextHandler) pump() {
	defer close(h.inputChan)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" && !h.deliver(inputResult{text: text}) {
			return
		}
		if err != nil {
			h.deliver(inputResult{err: err})
			return
		}
	}
}

func (h *TextHandler) deliver(res inputResult) bool {
	select {
	case h.inputChan <- res:
		return true
	case <-h.done:
		return false
	}
}

// Close releases the background reader. A read already blocked on the underlying
// reader returns on its own once that reader yields; its line is dropped.
// Input returns io.EOF afterwards.
func (h *TextHandler) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
	})
	return nil
}

// Input waits for the next line.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-h.done:
		return "", io.EOF
	case res, ok := <-h.inputChan:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.text), nil
	}
}
