package dsl

import "github.com/aretw0/stepgraph/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Do sets the tool the node executes. Nodes default to a tool named like
// the node itself.
func (n *NodeBuilder) Do(tool string) *NodeBuilder {
	n.node.Tool = tool
	return n
}

// Go sets the unconditional successor.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.node.ConditionKey = ""
	n.node.NextIfTrue = ""
	n.node.NextIfFalse = ""
	n.node.Next = target
	return n
}

// Branch makes the node pick its successor from the boolean at key.
// An empty target ends the run on that branch.
func (n *NodeBuilder) Branch(key, ifTrue, ifFalse string) *NodeBuilder {
	n.node.Next = ""
	n.node.ConditionKey = key
	n.node.NextIfTrue = ifTrue
	n.node.NextIfFalse = ifFalse
	return n
}

// Loop re-runs the node until key is true, then moves on to exit.
func (n *NodeBuilder) Loop(key, exit string) *NodeBuilder {
	return n.Branch(key, exit, n.node.Name)
}

// Terminal marks the node as the end of the flow.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	return n.Go("")
}

// Add continues building with another node of the same graph.
func (n *NodeBuilder) Add(name string) *NodeBuilder {
	return n.builder.Add(name)
}

// Build returns the underlying domain.Node.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
