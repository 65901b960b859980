package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/internal/cli"
	"github.com/aretw0/stepgraph/internal/validator"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/loader"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph-file>",
	Short: "Check a graph definition for consistency",
	Long: `Checks every node reference and tool name in the graph and reports all
problems at once. Nodes that cannot be reached from the start node are
reported as warnings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loader.LoadFile(args[0])
		if err != nil {
			return err
		}
		reg, err := cli.NewRegistry(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if err := stepgraph.New(stepgraph.WithRegistry(reg)).Validate(g); err != nil {
			violations := domain.Violations(err)
			if len(violations) == 0 {
				return err
			}
			for _, v := range violations {
				fmt.Fprintf(out, "  ✗ %s\n", v)
			}
			return errors.New("validation failed")
		}

		for _, name := range validator.Unreachable(g) {
			fmt.Fprintf(out, "  ! node %q is unreachable from %q\n", name, g.StartNode)
		}
		fmt.Fprintln(out, "Graph is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
