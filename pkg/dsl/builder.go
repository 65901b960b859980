package dsl

import (
	"github.com/aretw0/stepgraph/internal/runtime"
	"github.com/aretw0/stepgraph/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	id    string
	start string
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new graph builder for a graph with the given ID.
func New(id string) *Builder {
	return &Builder{
		id:    id,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
// The first node added is the start node unless Start says otherwise.
func (b *Builder) Add(name string) *NodeBuilder {
	if nb, ok := b.nodes[name]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{Name: name, Tool: name},
		builder: b,
	}
	b.nodes[name] = nb
	b.order = append(b.order, name)
	if b.start == "" {
		b.start = name
	}
	return nb
}

// Start sets the start node.
func (b *Builder) Start(name string) *Builder {
	b.start = name
	return b
}

// Graph returns the graph without validating it.
func (b *Builder) Graph() *domain.Graph {
	g := &domain.Graph{ID: b.id, StartNode: b.start, Nodes: make([]domain.Node, 0, len(b.order))}
	for _, name := range b.order {
		g.Nodes = append(g.Nodes, b.nodes[name].node)
	}
	return g
}

// Build returns the graph after checking its structure. Tool names are not
// resolved here; the engine does that against its registry.
func (b *Builder) Build() (*domain.Graph, error) {
	g := b.Graph()
	if err := runtime.ValidateGraph(g, nil); err != nil {
		return nil, err
	}
	return g, nil
}
