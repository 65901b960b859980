package domain

// Node represents a logical unit in the graph.
// It binds one tool to a transition rule: either an unconditional successor
// (Next) or a boolean branch on a state key (ConditionKey).
// An empty successor name means "terminal".
type Node struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	Tool string `json:"tool" yaml:"tool" mapstructure:"tool"`

	// Next is the unconditional successor. Ignored when ConditionKey is set.
	Next string `json:"next,omitempty" yaml:"next,omitempty" mapstructure:"next"`

	// ConditionKey names a boolean state key read after the tool ran.
	ConditionKey string `json:"condition_key,omitempty" yaml:"condition_key,omitempty" mapstructure:"condition_key"`
	NextIfTrue   string `json:"next_if_true,omitempty" yaml:"next_if_true,omitempty" mapstructure:"next_if_true"`
	NextIfFalse  string `json:"next_if_false,omitempty" yaml:"next_if_false,omitempty" mapstructure:"next_if_false"`
}

// IsBranching reports whether the next node depends on a state value.
func (n Node) IsBranching() bool {
	return n.ConditionKey != ""
}

// IsTerminal reports whether the node has no way out.
func (n Node) IsTerminal() bool {
	if n.IsBranching() {
		return n.NextIfTrue == "" && n.NextIfFalse == ""
	}
	return n.Next == ""
}

// Successors returns the non-empty successor names declared by the node.
func (n Node) Successors() []string {
	var out []string
	candidates := []string{n.Next}
	if n.IsBranching() {
		candidates = []string{n.NextIfTrue, n.NextIfFalse}
	}
	for _, c := range candidates {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
