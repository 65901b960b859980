package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
	EventRunFinish  EventType = "run_finish"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	Node string `json:"node"`
	Step int    `json:"step"`
	Next string `json:"next,omitempty"` // only on leave
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	Node     string        `json:"node"`
	Tool     string        `json:"tool"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// IsError reports whether the tool returned an error.
func (e *ToolEvent) IsError() bool {
	return e.Err != nil
}

// RunEvent is emitted once, when a run reaches a terminal status.
type RunEvent struct {
	EventBase
	GraphID string    `json:"graph_id"`
	Status  RunStatus `json:"status"`
	Steps   int       `json:"steps"`
	Error   string    `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
	OnRunFinish  func(context.Context, *RunEvent)
}
