package runtime

import (
	"context"
	"time"

	"github.com/aretw0/stepgraph/pkg/domain"
)

func (e *Engine) base(run *domain.Run, t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t, RunID: run.ID}
}

func (e *Engine) emitNodeEnter(ctx context.Context, run *domain.Run, node domain.Node, step int) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: e.base(run, domain.EventNodeEnter),
		Node:      node.Name,
		Step:      step,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, run *domain.Run, node domain.Node, step int, next string) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: e.base(run, domain.EventNodeLeave),
		Node:      node.Name,
		Step:      step,
		Next:      next,
	})
}

func (e *Engine) emitToolCall(ctx context.Context, run *domain.Run, node domain.Node) {
	if e.hooks.OnToolCall == nil {
		return
	}
	e.hooks.OnToolCall(ctx, &domain.ToolEvent{
		EventBase: e.base(run, domain.EventToolCall),
		Node:      node.Name,
		Tool:      node.Tool,
	})
}

func (e *Engine) emitToolReturn(ctx context.Context, run *domain.Run, node domain.Node, d time.Duration, err error) {
	if e.hooks.OnToolReturn == nil {
		return
	}
	e.hooks.OnToolReturn(ctx, &domain.ToolEvent{
		EventBase: e.base(run, domain.EventToolReturn),
		Node:      node.Name,
		Tool:      node.Tool,
		Duration:  d,
		Err:       err,
	})
}

func (e *Engine) emitRunFinish(ctx context.Context, run *domain.Run) {
	if e.hooks.OnRunFinish == nil {
		return
	}
	e.hooks.OnRunFinish(ctx, &domain.RunEvent{
		EventBase: e.base(run, domain.EventRunFinish),
		GraphID:   run.GraphID,
		Status:    run.Status,
		Steps:     run.Steps(),
		Error:     run.Error,
	})
}
