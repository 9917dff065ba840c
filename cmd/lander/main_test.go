package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags undoes earlier executions, as the command tree is shared.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Regexp(t, `^lander version \d+\.\d+\.\d+\n$`, out)
}

func TestValidateCmd(t *testing.T) {
	out, err := execute(t, "", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "All funnels are valid!")

	_, err = execute(t, "", "validate", "--scripts", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestGraphCmd(t *testing.T) {
	out, err := execute(t, "", "graph", "auto")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `s1 -- "YES" --> s2`)

	_, err = execute(t, "", "graph", "nope")
	assert.ErrorContains(t, err, "funnel not found")
}

func TestPlayCmd_Plain(t *testing.T) {
	if testing.Short() {
		t.Skip("plays the quiz loader in real time")
	}
	out, err := execute(t, "3\n1\n", "play", "quiz", "--plain")
	require.NoError(t, err)
	assert.Contains(t, out, "What is your current insurance carrier?")
	assert.Contains(t, out, "Validating your answers...")
	assert.Contains(t, out, "Reference: SOL-")
	assert.Contains(t, out, "Call now: 1-800-000-0000")
}

func TestMCPCmd_UnknownTransport(t *testing.T) {
	_, err := execute(t, "", "mcp", "--transport", "carrier-pigeon")
	assert.ErrorContains(t, err, "unknown transport")
}

func TestPushCmd(t *testing.T) {
	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr()

	_, err := execute(t, "", "push")
	assert.ErrorContains(t, err, "needs --redis")

	out, err := execute(t, "", "push", "--redis", url, "quiz")
	require.NoError(t, err)
	assert.Equal(t, "Published quiz\n", out)

	out, err = execute(t, "", "graph", "quiz", "--redis", url)
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")

	_, err = execute(t, "", "graph", "chat", "--redis", url)
	assert.ErrorContains(t, err, "funnel not found", "only quiz was published")
}
