package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/lander"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of lander",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lander version %s\n", strings.TrimSpace(lander.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
