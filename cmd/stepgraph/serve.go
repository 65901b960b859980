package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aretw0/stepgraph/internal/cli"
	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/internal/presentation/tui"
	stephttp "github.com/aretw0/stepgraph/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the engine behind a JSON API over HTTP. The summarization example
graph is registered at startup; its id is logged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		noExample, _ := cmd.Flags().GetBool("no-example")

		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger := logging.NewJSON(os.Stderr, level)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		streams := stephttp.NewStreamManager()
		promReg.MustRegister(streams.Collector())

		app, err := cli.NewApp(ctx, cfg, logger, promReg, streams.Hooks())
		if err != nil {
			return err
		}
		defer app.Close()

		if !noExample {
			id, err := app.Engine.RegisterExampleGraph(ctx)
			if err != nil {
				return fmt.Errorf("failed to register example graph: %w", err)
			}
			logger.Info("example graph registered", "graph_id", id)
		}

		srv := &http.Server{
			Addr: ":" + port,
			Handler: stephttp.NewHandler(app.Engine,
				stephttp.WithLogger(logger),
				stephttp.WithGatherer(promReg),
				stephttp.WithStreams(streams),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if tui.IsTerminal(os.Stderr) {
			tui.PrintBanner(os.Stderr)
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening", "address", srv.Addr, "store", cfg.Store)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				_ = srv.Close()
			}
			if err := <-serverErrors; err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Bool("no-example", false, "Do not register the example graph at startup")
}
