package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/stepgraph/internal/cli"
	"github.com/aretw0/stepgraph/internal/presentation/tui"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/loader"
)

var runCmd = &cobra.Command{
	Use:   "run <graph-file>",
	Short: "Execute a graph once and print the run record",
	Long: `Loads a YAML or JSON graph definition, stores it, runs it from its start
node and prints the resulting run record.

Exit status is 0 when the run completes, 2 when it fails and 3 when it
stops at the step limit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stateJSON, _ := cmd.Flags().GetString("state")
		stateFile, _ := cmd.Flags().GetString("state-file")
		maxSteps, _ := cmd.Flags().GetInt("max-steps")
		format, _ := cmd.Flags().GetString("format")

		if stateJSON != "" && stateFile != "" {
			return errors.New("--state and --state-file cannot be used together")
		}

		g, err := loader.LoadFile(args[0])
		if err != nil {
			return err
		}

		var initial domain.State
		switch {
		case stateFile != "":
			initial, err = loader.LoadState(stateFile)
		case stateJSON != "":
			initial, err = loader.ParseState([]byte(stateJSON), loader.FormatJSON)
		}
		if err != nil {
			return err
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := cli.NewApp(ctx, cfg, logger, nil)
		if err != nil {
			return err
		}

		run, err := runGraph(ctx, cmd.OutOrStdout(), app, g, initial, maxSteps, format)
		_ = app.Close()
		if err != nil {
			return err
		}
		if code := cli.ExitCode(run); code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func runGraph(ctx context.Context, w io.Writer, app *cli.App, g *domain.Graph, initial domain.State, maxSteps int, format string) (*domain.Run, error) {
	id, err := app.Engine.CreateGraph(ctx, g)
	if err != nil {
		return nil, err
	}
	run, err := app.Engine.Run(ctx, id, initial, maxSteps)
	if err != nil {
		return nil, err
	}
	return run, cli.WriteRun(w, run, format, tui.IsTerminal(os.Stdout))
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("state", "", "Initial state as a JSON object")
	runCmd.Flags().String("state-file", "", "Read the initial state from a YAML or JSON file")
	runCmd.Flags().Int("max-steps", 0, "Step budget (0 uses the default of 50)")
	runCmd.Flags().StringP("format", "f", cli.FormatJSON, "Output format: json or pretty")
}
