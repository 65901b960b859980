package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrGraphNotFound is returned when a graph ID cannot be found in the store.
var ErrGraphNotFound = errors.New("graph not found")

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// Violation is a single structural defect in a graph definition.
type Violation struct {
	Node   string `json:"node,omitempty"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	if v.Node == "" {
		return fmt.Sprintf("%s: %s", v.Field, v.Reason)
	}
	return fmt.Sprintf("node %q %s: %s", v.Node, v.Field, v.Reason)
}

// GraphValidationError lists every violation found in a graph definition.
type GraphValidationError struct {
	Violations []Violation
}

func (e *GraphValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "invalid graph: " + e.Violations[0].String()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid graph: %d violations:\n", len(e.Violations))
	for i, v := range e.Violations {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, v.String())
	}
	return sb.String()
}

// Violations returns the violations carried by err, or nil if err is not
// a GraphValidationError.
func Violations(err error) []Violation {
	var verr *GraphValidationError
	if errors.As(err, &verr) {
		return verr.Violations
	}
	return nil
}

// DuplicateToolError is returned when registering a name twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool already registered: %s", e.Name)
}

// UnknownToolError is returned when a tool name does not resolve.
type UnknownToolError struct {
	Node string
	Tool string
}

func (e *UnknownToolError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("tool not found: %s", e.Tool)
	}
	return fmt.Sprintf("node %q: tool not found: %s", e.Node, e.Tool)
}

// ToolExecutionError wraps a failure raised by a tool.
type ToolExecutionError struct {
	Node string
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("node %q: tool %s failed: %v", e.Node, e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// ConditionKeyError is returned when a branching node cannot read a boolean
// from its condition key.
type ConditionKeyError struct {
	Node    string
	Key     string
	Value   any
	Missing bool
}

func (e *ConditionKeyError) Error() string {
	if e.Missing {
		return fmt.Sprintf("node %q: condition key %q not found in state", e.Node, e.Key)
	}
	return fmt.Sprintf("node %q: condition key %q is not a boolean (got %T)", e.Node, e.Key, e.Value)
}

// NodeNotFoundError is returned when the engine is asked to execute a node
// the graph does not define.
type NodeNotFoundError struct {
	Node string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node not found: %s", e.Node)
}

// ValueKindError reports a state value outside the supported kinds.
// Cyclic is set when the value contains itself.
type ValueKindError struct {
	Key    string
	Value  any
	Cyclic bool
}

func (e *ValueKindError) Error() string {
	if e.Cyclic {
		return fmt.Sprintf("state key %q: value contains itself", e.Key)
	}
	return fmt.Sprintf("state key %q: unsupported value type %T", e.Key, e.Value)
}
