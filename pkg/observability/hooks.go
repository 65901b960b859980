package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// LoggingHooks logs every lifecycle event. Node and tool events go to debug,
// run completion to info and failures to warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "run_id", e.RunID, "node", e.Node, "step", e.Step)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "run_id", e.RunID, "node", e.Node, "next", e.Next)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call", "run_id", e.RunID, "node", e.Node, "tool", e.Tool)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			if e.IsError() {
				logger.WarnContext(ctx, "tool_error", "run_id", e.RunID, "tool", e.Tool, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "tool_return", "run_id", e.RunID, "tool", e.Tool, "duration", e.Duration)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			level := slog.LevelInfo
			if e.Status == domain.StatusFailed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "run_finish",
				"run_id", e.RunID,
				"graph_id", e.GraphID,
				"status", e.Status,
				"steps", e.Steps,
				"err", e.Error,
			)
		},
	}
}

// Combine fans every event out to each set of hooks in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks

	var nodeEnter, nodeLeave []func(context.Context, *domain.NodeEvent)
	var toolCall, toolReturn []func(context.Context, *domain.ToolEvent)
	var runFinish []func(context.Context, *domain.RunEvent)
	for _, h := range all {
		if h.OnNodeEnter != nil {
			nodeEnter = append(nodeEnter, h.OnNodeEnter)
		}
		if h.OnNodeLeave != nil {
			nodeLeave = append(nodeLeave, h.OnNodeLeave)
		}
		if h.OnToolCall != nil {
			toolCall = append(toolCall, h.OnToolCall)
		}
		if h.OnToolReturn != nil {
			toolReturn = append(toolReturn, h.OnToolReturn)
		}
		if h.OnRunFinish != nil {
			runFinish = append(runFinish, h.OnRunFinish)
		}
	}

	out.OnNodeEnter = fanOut(nodeEnter)
	out.OnNodeLeave = fanOut(nodeLeave)
	out.OnToolCall = fanOut(toolCall)
	out.OnToolReturn = fanOut(toolReturn)
	out.OnRunFinish = fanOut(runFinish)
	return out
}

func fanOut[E any](fns []func(context.Context, E)) func(context.Context, E) {
	if len(fns) == 0 {
		return nil
	}
	return func(ctx context.Context, e E) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}
