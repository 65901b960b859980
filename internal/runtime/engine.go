package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/google/uuid"
)

// ToolResolver is the read side of the tool registry.
type ToolResolver interface {
	Resolve(name string) (registry.Tool, error)
}

// Engine is the core graph runner.
// It holds no per-run state, so one Engine serves any number of concurrent runs.
type Engine struct {
	tools  ToolResolver
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	now    func() time.Time
	newID  func() string
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithClock overrides the time source used for log timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRunIDGenerator overrides how Execute names new runs.
func WithRunIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine creates a new engine resolving tools through tools.
func NewEngine(tools ToolResolver, opts ...EngineOption) *Engine {
	e := &Engine{
		tools:  tools,
		logger: logging.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate checks the graph against the engine's tools.
func (e *Engine) Validate(g *domain.Graph) error {
	return ValidateGraph(g, e.tools)
}

// Execute runs graph g from its start node over a copy of initial.
// maxSteps <= 0 selects domain.DefaultMaxSteps.
//
// Execution errors never escape: they are captured in the returned run's
// status, error and log.
func (e *Engine) Execute(ctx context.Context, g *domain.Graph, initial domain.State, maxSteps int) *domain.Run {
	run := domain.NewRun(e.newID(), g.ID, g.StartNode, initial, maxSteps)
	return e.ExecuteRun(ctx, g, run)
}

// ExecuteRun drives an already initialized run until it reaches a terminal
// status. Runs that are already terminal are returned untouched.
func (e *Engine) ExecuteRun(ctx context.Context, g *domain.Graph, run *domain.Run) *domain.Run {
	if run.Status.IsTerminal() {
		return run
	}

	if err := run.State.Validate(); err != nil {
		e.finish(ctx, run, domain.StatusFailed, fmt.Errorf("invalid initial state: %w", err))
		return run
	}

	nodes := g.Index()
	for run.CurrentNode != "" && run.Steps() < run.MaxSteps {
		// Cancellation is only observed between steps, never mid-tool.
		if err := ctx.Err(); err != nil {
			e.finish(ctx, run, domain.StatusFailed, err)
			return run
		}

		node, ok := nodes[run.CurrentNode]
		if !ok {
			// The missing node never ran, so the failure belongs to the step
			// that pointed at it.
			err := &domain.NodeNotFoundError{Node: run.CurrentNode}
			if n := len(run.Log); n > 0 {
				run.Log[n-1].Error = err.Error()
			}
			e.finish(ctx, run, domain.StatusFailed, err)
			return run
		}

		if err := e.step(ctx, run, node); err != nil {
			e.finish(ctx, run, domain.StatusFailed, err)
			return run
		}
	}

	if run.CurrentNode == "" {
		e.finish(ctx, run, domain.StatusCompleted, nil)
	} else {
		e.finish(ctx, run, domain.StatusStepLimitExceeded, nil)
	}
	return run
}

// step executes a single node: tool call, merge, transition, log.
func (e *Engine) step(ctx context.Context, run *domain.Run, node domain.Node) error {
	index := run.Steps()
	e.emitNodeEnter(ctx, run, node, index)

	tool, err := e.tools.Resolve(node.Tool)
	if err != nil {
		unknown := &domain.UnknownToolError{Node: node.Name, Tool: node.Tool}
		e.appendFailure(run, node, 0, unknown)
		return unknown
	}

	started := e.now()
	e.emitToolCall(ctx, run, node)
	fragment, err := invoke(ctx, tool, run.State.Clone())
	duration := e.now().Sub(started)
	if err == nil {
		err = fragment.Validate()
	}
	e.emitToolReturn(ctx, run, node, duration, err)

	if err != nil {
		toolErr := &domain.ToolExecutionError{Node: node.Name, Tool: node.Tool, Err: err}
		e.appendFailure(run, node, duration, toolErr)
		return toolErr
	}

	delta := run.State.Delta(fragment)
	run.State.Merge(fragment)

	next, condErr := resolveNext(node, run.State)

	entry := domain.StepEntry{
		Index:     index,
		Node:      node.Name,
		Tool:      node.Tool,
		Timestamp: e.now(),
		Duration:  duration,
		State:     run.State.Clone(),
		Next:      next,
	}
	if len(delta) > 0 {
		entry.Delta = delta
	}
	if condErr != nil {
		entry.Error = condErr.Error()
	}
	run.Log = append(run.Log, entry)

	if condErr != nil {
		return condErr
	}

	e.logger.Debug("step completed",
		"run_id", run.ID,
		"step", index,
		"node", node.Name,
		"next", next,
		"changed", delta.Keys(),
	)

	run.CurrentNode = next
	e.emitNodeLeave(ctx, run, node, index, next)
	return nil
}

func (e *Engine) appendFailure(run *domain.Run, node domain.Node, duration time.Duration, err error) {
	run.Log = append(run.Log, domain.StepEntry{
		Index:     run.Steps(),
		Node:      node.Name,
		Tool:      node.Tool,
		Timestamp: e.now(),
		Duration:  duration,
		Error:     err.Error(),
	})
}

// finish moves the run to a terminal status. No transition leaves a terminal status.
func (e *Engine) finish(ctx context.Context, run *domain.Run, status domain.RunStatus, err error) {
	if run.Status.IsTerminal() {
		return
	}
	run.Status = status
	if err != nil {
		run.Error = err.Error()
	}
	finished := e.now()
	run.FinishedAt = &finished

	if status == domain.StatusFailed {
		e.logger.Warn("run failed",
			"run_id", run.ID,
			"graph_id", run.GraphID,
			"node", run.CurrentNode,
			"steps", run.Steps(),
			"err", err,
		)
	} else {
		e.logger.Debug("run finished",
			"run_id", run.ID,
			"graph_id", run.GraphID,
			"status", status,
			"steps", run.Steps(),
		)
	}
	e.emitRunFinish(ctx, run)
}

// invoke calls the tool, converting a panic into an error so one faulty tool
// cannot take down the host.
func invoke(ctx context.Context, tool registry.Tool, state domain.State) (out domain.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return tool.Apply(ctx, state)
}
