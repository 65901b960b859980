package runtime

import (
	"github.com/aretw0/stepgraph/pkg/domain"
)

// resolveNext picks the successor of node given the post-merge state.
// An empty result means the run ends after this node.
func resolveNext(node domain.Node, state domain.State) (string, error) {
	if !node.IsBranching() {
		return node.Next, nil
	}

	raw, exists := state[node.ConditionKey]
	if !exists {
		return "", &domain.ConditionKeyError{Node: node.Name, Key: node.ConditionKey, Missing: true}
	}

	// No coercion: "true", 1 and nil are all errors.
	cond, ok := raw.(bool)
	if !ok {
		return "", &domain.ConditionKeyError{Node: node.Name, Key: node.ConditionKey, Value: raw}
	}

	if cond {
		return node.NextIfTrue, nil
	}
	return node.NextIfFalse, nil
}
