package runner

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_Input(t *testing.T) {
	h := NewTextHandler(strings.NewReader("  GEICO \nlast"), io.Discard)
	defer h.Close()
	ctx := context.Background()

	got, err := h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GEICO", got)

	got, err = h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, "last", got, "a final line without newline is still delivered")

	_, err = h.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextHandler_InputHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	h := NewTextHandler(pr, io.Discard)
	defer h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTextHandler_CloseReleasesPump(t *testing.T) {
	h := NewTextHandler(strings.NewReader("unread\nlines\n"), io.Discard)
	h.initPump()
	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "closing twice is a no-op")

	// The pump gives up on lines nobody asked for and closes its channel.
	deadline := time.After(time.Second)
	for closed := false; !closed; {
		select {
		case _, ok := <-h.inputChan:
			closed = !ok
		case <-deadline:
			t.Fatal("pump still running after Close")
		}
	}

	_, err := h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
