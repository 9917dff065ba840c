package main

import (
	"fmt"

	"github.com/aretw0/lander/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <funnel>",
	Short: "Export the funnel visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the funnel steps.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, _, _, err := open(cmd, nil)
		if err != nil {
			return err
		}
		defer l.Close()

		script, err := l.Loader().Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(script, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
