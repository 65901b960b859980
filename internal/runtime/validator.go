package runtime

import (
	"fmt"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// ValidateGraph checks a graph definition before it is ever executed.
// Every violation is collected so the caller can fix the definition in one
// pass. tools may be nil to skip tool resolution.
func ValidateGraph(g *domain.Graph, tools ToolResolver) error {
	if g == nil {
		return &domain.GraphValidationError{Violations: []domain.Violation{
			{Field: "graph", Reason: "is required"},
		}}
	}

	var violations []domain.Violation
	add := func(node, field, format string, args ...any) {
		violations = append(violations, domain.Violation{
			Node:   node,
			Field:  field,
			Reason: fmt.Sprintf(format, args...),
		})
	}

	if len(g.Nodes) == 0 {
		add("", "nodes", "at least one node is required")
	}

	names := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.Name == "" {
			add("", fmt.Sprintf("nodes[%d].name", i), "is required")
			continue
		}
		if names[n.Name] {
			add(n.Name, "name", "is not unique")
		}
		names[n.Name] = true
	}

	switch {
	case g.StartNode == "":
		add("", "start_node", "is required")
	case !names[g.StartNode]:
		add("", "start_node", "unknown node %q", g.StartNode)
	}

	checkRef := func(node, field, target string) {
		if target != "" && !names[target] {
			add(node, field, "unknown node %q", target)
		}
	}

	for _, n := range g.Nodes {
		if n.Name == "" {
			continue
		}

		if n.Tool == "" {
			add(n.Name, "tool", "is required")
		} else if tools != nil {
			if _, err := tools.Resolve(n.Tool); err != nil {
				add(n.Name, "tool", "unknown tool %q", n.Tool)
			}
		}

		if n.IsBranching() {
			if n.Next != "" {
				add(n.Name, "next", "cannot be combined with condition_key")
			}
			checkRef(n.Name, "next_if_true", n.NextIfTrue)
			checkRef(n.Name, "next_if_false", n.NextIfFalse)
			continue
		}

		checkRef(n.Name, "next", n.Next)
		if n.NextIfTrue != "" || n.NextIfFalse != "" {
			add(n.Name, "condition_key", "is required when next_if_true/next_if_false are set")
		}
	}

	if len(violations) > 0 {
		return &domain.GraphValidationError{Violations: violations}
	}
	return nil
}
