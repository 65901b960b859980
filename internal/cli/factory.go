package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/pkg/adapters/file"
	"github.com/aretw0/stepgraph/pkg/adapters/memory"
	"github.com/aretw0/stepgraph/pkg/adapters/process"
	"github.com/aretw0/stepgraph/pkg/adapters/redis"
	"github.com/aretw0/stepgraph/pkg/adapters/sqlite"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/observability"
	"github.com/aretw0/stepgraph/pkg/persistence/middleware"
	"github.com/aretw0/stepgraph/pkg/ports"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/aretw0/stepgraph/pkg/tools"
)

// Stores bundles the persistence selected by Config.Store.
type Stores struct {
	Graphs ports.GraphStore
	Runs   ports.RunStore
	closer io.Closer
}

// Close releases the backend connection, if any.
func (s *Stores) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// OpenStores creates the configured backend and wraps its run store with the
// encryption and PII middleware when they are configured.
func OpenStores(ctx context.Context, cfg Config) (*Stores, error) {
	stores := &Stores{}

	switch cfg.Store {
	case "", StoreMemory:
		stores.Graphs = memory.NewGraphStore()
		stores.Runs = memory.NewRunStore()
	case StoreFile:
		fs := file.New(cfg.DataDir)
		stores.Graphs = fs.Graphs()
		stores.Runs = fs.Runs()
	case StoreRedis:
		var opts []redis.Option
		if cfg.RunTTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.RunTTL))
		}
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		stores.Graphs = rs.Graphs()
		stores.Runs = rs.Runs()
		stores.closer = rs
	case StoreSQLite:
		ss, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		stores.Graphs = ss.Graphs()
		stores.Runs = ss.Runs()
		stores.closer = ss
	default:
		return nil, fmt.Errorf("unknown store %q (want %s, %s, %s or %s)", cfg.Store, StoreMemory, StoreFile, StoreRedis, StoreSQLite)
	}

	// Masking is the outer layer so only masked values get encrypted.
	var mws []middleware.Middleware
	if len(cfg.MaskKeys) > 0 {
		for _, p := range cfg.MaskKeys {
			if _, err := regexp.Compile(p); err != nil {
				_ = stores.Close()
				return nil, fmt.Errorf("mask key %q: %w", p, err)
			}
		}
		mws = append(mws, middleware.NewPIIMiddleware(cfg.MaskKeys))
	}
	if cfg.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.EncryptionKey)
		if err != nil {
			_ = stores.Close()
			return nil, fmt.Errorf("encryption key: %w", err)
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	stores.Runs = middleware.Chain(stores.Runs, mws...)

	return stores, nil
}

// NewRegistry installs the built-in tools plus the commands declared in
// cfg.ToolsFile.
func NewRegistry(cfg Config) (*registry.Registry, error) {
	reg := registry.New()
	if err := tools.Register(reg); err != nil {
		return nil, err
	}
	if cfg.ToolsFile == "" {
		return reg, nil
	}

	configs, err := process.LoadTools(cfg.ToolsFile)
	if err != nil {
		return nil, err
	}
	// Relative script paths resolve against the tools file, not the caller's cwd.
	if err := process.Register(reg, configs, process.WithBaseDir(filepath.Dir(cfg.ToolsFile))); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.ToolsFile, err)
	}
	return reg, nil
}

// App is a fully wired engine with its supporting pieces.
type App struct {
	Engine  *stepgraph.Engine
	Stores  *Stores
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Close releases the stores.
func (a *App) Close() error {
	return a.Stores.Close()
}

// NewApp wires registry, stores, metrics and logging into an engine.
// Metrics are registered on promReg when it is non-nil.
func NewApp(ctx context.Context, cfg Config, logger *slog.Logger, promReg prometheus.Registerer, hooks ...domain.LifecycleHooks) (*App, error) {
	reg, err := NewRegistry(cfg)
	if err != nil {
		return nil, err
	}

	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics(promReg)
	all := append([]domain.LifecycleHooks{observability.LoggingHooks(logger), metrics.Hooks()}, hooks...)

	eng := stepgraph.New(
		stepgraph.WithRegistry(reg),
		stepgraph.WithGraphStore(stores.Graphs),
		stepgraph.WithRunStore(stores.Runs),
		stepgraph.WithLogger(logger),
		stepgraph.WithLifecycleHooks(observability.Combine(all...)),
	)

	return &App{Engine: eng, Stores: stores, Metrics: metrics, Logger: logger}, nil
}
