package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every funnel script for consistency",
	Long:  `Loads every funnel script and reports structural errors: step order, answer keys, loader phases, artifact ranges and countdown formats.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, _, _, err := open(cmd, nil)
		if err != nil {
			return err
		}
		defer l.Close()

		if err := l.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All funnels are valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
