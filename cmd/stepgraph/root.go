package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/stepgraph/internal/cli"
	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/internal/presentation/tui"
)

var cfg = cli.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "stepgraph",
	Short: "stepgraph executes graphs of tools over a shared state",
	Long: `stepgraph runs workflow graphs whose nodes call registered tools.
Every tool reads the shared state and returns a partial update; nodes may
branch on a state key and loop until a step limit is hit.

Every flag can also be set through a STEPGRAPH_* environment variable
(for example STEPGRAPH_STORE=redis).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cfg.ApplyEnv(cmd.Flags().Changed)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	f.StringVar(&cfg.Store, "store", cfg.Store, "Persistence backend: memory, file, redis or sqlite")
	f.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory used by the file store")
	f.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address used by the redis store")
	f.StringVar(&cfg.RedisPassword, "redis-password", "", "Redis password")
	f.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number")
	f.DurationVar(&cfg.RunTTL, "run-ttl", 0, "Expire run records after this long (redis only, 0 keeps them)")
	f.StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "Database file used by the sqlite store")
	f.StringVar(&cfg.EncryptionKey, "encryption-key", "", "Hex-encoded 32-byte key; encrypts run state at rest")
	f.StringSliceVar(&cfg.MaskKeys, "mask-keys", nil, "Regular expressions of state keys masked before storage")
	f.StringVar(&cfg.ToolsFile, "tools-file", "", "YAML or JSON file declaring external command tools")
}

func newLogger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if tui.IsTerminal(os.Stderr) {
		return logging.NewConsole(os.Stderr, level, false), nil
	}
	return logging.New(level), nil
}
