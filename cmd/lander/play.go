package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/lander/internal/presentation/tui"
	"github.com/aretw0/lander/pkg/runner"
	"github.com/aretw0/lander/pkg/scripts"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play [funnel]",
	Short: "Play a funnel in the terminal",
	Long: `Plays one session of a funnel (default: quiz).

On an interactive terminal a full-screen view is used. With --plain, or when input or
output is redirected, the session is printed line by line. With --json every change is
written as one JSON diff per line and answers are read one per line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		funnel := scripts.Quiz
		if len(args) > 0 {
			funnel = args[0]
		}
		jsonMode, _ := cmd.Flags().GetBool("json")
		plain, _ := cmd.Flags().GetBool("plain")
		follow, _ := cmd.Flags().GetBool("follow")
		phone, _ := cmd.Flags().GetString("phone")

		l, cfg, _, err := open(cmd, nil)
		if err != nil {
			return err
		}
		defer l.Close()
		if phone == "" {
			phone = cfg.DefaultPhone
		}

		sm := runner.NewSignalManager(cmd.Context())
		defer sm.Stop()
		ctx := sm.Context()

		interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		if interactive && !plain && !jsonMode {
			r, err := l.Start(ctx, funnel, phone)
			if err != nil {
				return err
			}
			defer l.Manager().End(r.SessionID())
			_, err = tui.Run(ctx, r, tui.WithMarkdown(tui.NewRenderer()))
			if sm.Interrupted() {
				return nil
			}
			return err
		}

		var h runner.IOHandler
		if jsonMode {
			h = runner.NewJSONHandler(cmd.InOrStdin(), cmd.OutOrStdout())
		} else {
			var opts []runner.TextHandlerOption
			if interactive {
				tui.PrintBanner(cmd.OutOrStdout())
				opts = append(opts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
			}
			h = runner.NewTextHandler(cmd.InOrStdin(), cmd.OutOrStdout(), opts...)
		}
		if c, ok := h.(io.Closer); ok {
			defer c.Close()
		}

		snap, err := l.Play(ctx, funnel, phone, h, runner.WithFollowCountdown(follow))
		if sm.Interrupted() {
			if !jsonMode {
				fmt.Fprintln(cmd.OutOrStdout(), "\nBye!")
			}
			return nil
		}
		if err != nil {
			return err
		}
		if !snap.Terminal && !jsonMode {
			fmt.Fprintln(cmd.OutOrStdout(), "\nInput closed before the funnel finished.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON output, one answer per input line)")
	playCmd.Flags().Bool("plain", false, "Print line by line even on an interactive terminal")
	playCmd.Flags().Bool("follow", false, "Stay on the result until the countdown expires")
	playCmd.Flags().String("phone", "", "Contact number override (env LANDER_DEFAULT_PHONE)")
}
