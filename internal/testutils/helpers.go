package testutils

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
)

// ErrToolBoom is returned by Fail.
var ErrToolBoom = errors.New("boom")

// Set returns a tool that merges a fixed fragment.
func Set(fragment domain.State) registry.Tool {
	return registry.ToolFunc(func(ctx context.Context, state domain.State) (domain.State, error) {
		return fragment.Clone(), nil
	})
}

// Noop returns a tool that changes nothing.
func Noop() registry.Tool {
	return Set(domain.State{})
}

// Fail returns a tool that always fails with ErrToolBoom.
func Fail() registry.Tool {
	return registry.ToolFunc(func(ctx context.Context, state domain.State) (domain.State, error) {
		return nil, ErrToolBoom
	})
}

// CountUntil returns a tool that increments state[counter] and sets
// state[flag] to true once the counter reaches k.
func CountUntil(counter, flag string, k int) registry.Tool {
	return registry.ToolFunc(func(ctx context.Context, state domain.State) (domain.State, error) {
		n, err := AsInt(state[counter])
		if err != nil {
			return nil, err
		}
		n++
		return domain.State{counter: n, flag: n >= k}, nil
	})
}

// AsInt reads an integer-ish state value, treating nil as zero.
func AsInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

// NewRegistry builds a registry from a name -> tool map, failing the test on error.
func NewRegistry(t *testing.T, tools map[string]registry.Tool) *registry.Registry {
	t.Helper()

	reg := registry.New()
	for name, tool := range tools {
		require.NoError(t, reg.Register(name, tool), "register %s", name)
	}
	return reg
}

// Chain builds a linear graph n1 -> n2 -> ... where each node uses the tool
// of the same name.
func Chain(names ...string) *domain.Graph {
	g := &domain.Graph{ID: "chain"}
	for i, name := range names {
		n := domain.Node{Name: name, Tool: name}
		if i+1 < len(names) {
			n.Next = names[i+1]
		}
		g.Nodes = append(g.Nodes, n)
	}
	if len(names) > 0 {
		g.StartNode = names[0]
	}
	return g
}
