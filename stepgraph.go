package stepgraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/internal/runtime"
	"github.com/aretw0/stepgraph/pkg/adapters/memory"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/aretw0/stepgraph/pkg/tools"
)

// Version is the stepgraph release, overridden at build time with
// -ldflags "-X github.com/aretw0/stepgraph.Version=...".
var Version = "0.1.0-dev"

// Engine is the high-level entry point for the stepgraph library.
// It wraps the internal runtime with graph and run storage.
type Engine struct {
	runtime *runtime.Engine
	tools   *registry.Registry
	graphs  ports.GraphStore
	runs    ports.RunStore
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	newID   func() string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRegistry sets the tool registry. Defaults to an empty registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.tools = reg
	}
}

// WithGraphStore sets where graph definitions are kept. Defaults to memory.
func WithGraphStore(store ports.GraphStore) Option {
	return func(e *Engine) {
		e.graphs = store
	}
}

// WithRunStore sets where run records are kept. Defaults to memory.
func WithRunStore(store ports.RunStore) Option {
	return func(e *Engine) {
		e.runs = store
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithIDGenerator overrides how graph and run ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.tools == nil {
		eng.tools = registry.New()
	}
	if eng.graphs == nil {
		eng.graphs = memory.NewGraphStore()
	}
	if eng.runs == nil {
		eng.runs = memory.NewRunStore()
	}
	// Ensure logger is initialized (so we don't pass nil to runtime)
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.newID == nil {
		eng.newID = uuid.NewString
	}

	eng.runtime = runtime.NewEngine(
		eng.tools,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithRunIDGenerator(eng.newID),
	)
	return eng
}

// Tools returns the registry used to resolve node tools.
func (e *Engine) Tools() *registry.Registry {
	return e.tools
}

// Validate checks a graph against the registered tools without storing it.
func (e *Engine) Validate(g *domain.Graph) error {
	return e.runtime.Validate(g)
}

// CreateGraph validates and stores a graph definition, returning its id.
// A definition without id gets a generated one.
func (e *Engine) CreateGraph(ctx context.Context, g *domain.Graph) (string, error) {
	if err := e.Validate(g); err != nil {
		return "", err
	}

	g = g.Clone()
	if g.ID == "" {
		g.ID = e.newID()
	}
	if err := e.graphs.Save(ctx, g); err != nil {
		return "", fmt.Errorf("failed to save graph %s: %w", g.ID, err)
	}

	e.logger.Info("graph created", "graph_id", g.ID, "nodes", len(g.Nodes))
	return g.ID, nil
}

// GetGraph returns a stored graph definition or domain.ErrGraphNotFound.
func (e *Engine) GetGraph(ctx context.Context, id string) (*domain.Graph, error) {
	return e.graphs.Get(ctx, id)
}

// ListGraphs returns the ids of the stored graphs.
func (e *Engine) ListGraphs(ctx context.Context) ([]string, error) {
	return e.graphs.List(ctx)
}

// Run executes a stored graph from its start node.
// Only lookup and storage problems are returned as errors; execution failures
// are recorded in the returned run.
// maxSteps <= 0 selects domain.DefaultMaxSteps.
func (e *Engine) Run(ctx context.Context, graphID string, initial domain.State, maxSteps int) (*domain.Run, error) {
	g, err := e.graphs.Get(ctx, graphID)
	if err != nil {
		return nil, err
	}

	run := domain.NewRun(e.newID(), g.ID, g.StartNode, initial, maxSteps)
	if err := e.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	e.runtime.ExecuteRun(ctx, g, run)

	// The final record is saved even when the caller gave up on ctx.
	if err := e.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		return run, fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return run, nil
}

// GetRun returns a run record or domain.ErrRunNotFound.
func (e *Engine) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	return e.runs.Get(ctx, id)
}

// ListRuns returns the ids of the stored runs.
func (e *Engine) ListRuns(ctx context.Context) ([]string, error) {
	return e.runs.List(ctx)
}

// ListRunsByStatus returns the ids of the stored runs in the given status.
func (e *Engine) ListRunsByStatus(ctx context.Context, status domain.RunStatus) ([]string, error) {
	return ports.ListRunsByStatus(ctx, e.runs, status)
}

// DeleteRun removes a run record. It returns domain.ErrRunNotFound when
// there is nothing to delete.
func (e *Engine) DeleteRun(ctx context.Context, id string) error {
	if _, err := e.runs.Get(ctx, id); err != nil {
		return err
	}
	if err := e.runs.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	e.logger.Info("run deleted", "run_id", id)
	return nil
}

// RegisterExampleGraph stores the summarization workflow, installing its
// tools first if the registry does not have them yet.
func (e *Engine) RegisterExampleGraph(ctx context.Context) (string, error) {
	if !e.tools.Has(tools.SplitText) {
		if err := tools.Register(e.tools); err != nil {
			return "", err
		}
	}
	return e.CreateGraph(ctx, tools.ExampleGraph(""))
}
