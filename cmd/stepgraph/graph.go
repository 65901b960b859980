package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/stepgraph/internal/cli"
	"github.com/aretw0/stepgraph/internal/presentation/graph"
	"github.com/aretw0/stepgraph/pkg/loader"
)

var graphCmd = &cobra.Command{
	Use:   "graph <graph-file>",
	Short: "Export the graph as a Mermaid diagram",
	Long: `Outputs a Mermaid flowchart (graph TD) of the graph definition.
With --run-id the path of a stored run is highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run-id")

		g, err := loader.LoadFile(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if runID != "" {
			stores, err := cli.OpenStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			run, err := stores.Runs.Get(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("run %s: %w", runID, err)
			}
			if run.GraphID != g.ID {
				return fmt.Errorf("run %s belongs to graph %q, not %q", runID, run.GraphID, g.ID)
			}
			overlay = graph.OverlayFor(run)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run-id", "", "Highlight the path taken by a stored run")
}
