package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/stepgraph/internal/cli"
	"github.com/aretw0/stepgraph/internal/presentation/tui"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List stored runs, show one or delete one",
	Long: `Without arguments, lists the run ids kept by the configured store,
optionally only those in the --status given. With a run id, prints that run
record, or removes it when --delete is set. Only persistent stores (file,
redis, sqlite) keep runs between invocations.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		statusName, _ := cmd.Flags().GetString("status")
		remove, _ := cmd.Flags().GetBool("delete")
		if remove && len(args) == 0 {
			return fmt.Errorf("--delete needs a run id")
		}

		stores, err := cli.OpenStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			ids, err := listRuns(cmd.Context(), stores.Runs, statusName)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		}

		run, err := stores.Runs.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("run %s: %w", args[0], err)
		}
		if remove {
			if err := stores.Runs.Delete(cmd.Context(), run.ID); err != nil {
				return fmt.Errorf("run %s: %w", run.ID, err)
			}
			fmt.Fprintf(out, "Deleted run %s\n", run.ID)
			return nil
		}
		return cli.WriteRun(out, run, format, tui.IsTerminal(os.Stdout))
	},
}

func listRuns(ctx context.Context, store ports.RunStore, statusName string) ([]string, error) {
	if statusName == "" {
		return store.List(ctx)
	}
	status, err := domain.ParseRunStatus(statusName)
	if err != nil {
		return nil, err
	}
	return ports.ListRunsByStatus(ctx, store, status)
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringP("format", "f", cli.FormatJSON, "Output format: json or pretty")
	runsCmd.Flags().String("status", "", "Only list runs in this status (running, completed, failed, step_limit_exceeded)")
	runsCmd.Flags().Bool("delete", false, "Delete the given run instead of printing it")
}
