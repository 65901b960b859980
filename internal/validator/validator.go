// Package validator holds advisory graph checks that go beyond structural
// validity. Their findings are warnings: a graph with unreachable nodes
// still runs.
package validator

import "github.com/aretw0/stepgraph/pkg/domain"

// Unreachable crawls g from its start node and returns, in definition order,
// the nodes no path can reach. Dangling successors are skipped; they are
// reported by runtime.ValidateGraph.
func Unreachable(g *domain.Graph) []string {
	index := g.Index()
	visited := make(map[string]bool, len(index))

	queue := []string{g.StartNode}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		node, ok := index[current]
		if !ok {
			continue
		}
		visited[current] = true

		for _, next := range node.Successors() {
			if !visited[next] {
				queue = append(queue, next)
			}
		}
	}

	var out []string
	for _, n := range g.Nodes {
		if !visited[n.Name] {
			out = append(out, n.Name)
		}
	}
	return out
}

// Terminals returns the nodes with no way out, in definition order.
// A graph without any can only end through its step budget or a failure.
func Terminals(g *domain.Graph) []string {
	var out []string
	for _, n := range g.Nodes {
		if n.IsTerminal() || hasEmptyBranch(n) {
			out = append(out, n.Name)
		}
	}
	return out
}

func hasEmptyBranch(n domain.Node) bool {
	return n.IsBranching() && (n.NextIfTrue == "" || n.NextIfFalse == "")
}
