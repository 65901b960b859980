package domain

// Graph is the declarative definition of a workflow.
// It is treated as read-only once created; stores hand out clones.
type Graph struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty" mapstructure:"id"`
	StartNode string `json:"start_node" yaml:"start_node" mapstructure:"start_node"`
	Nodes     []Node `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
}

// Index returns the nodes keyed by name. On duplicate names the first wins.
func (g *Graph) Index() map[string]Node {
	idx := make(map[string]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, exists := idx[n.Name]; !exists {
			idx[n.Name] = n
		}
	}
	return idx
}

// Clone returns a copy that shares nothing with g.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := *g
	out.Nodes = append([]Node(nil), g.Nodes...)
	return &out
}
