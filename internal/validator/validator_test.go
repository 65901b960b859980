package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/stepgraph/pkg/domain"
)

func TestUnreachable(t *testing.T) {
	tests := []struct {
		name  string
		graph *domain.Graph
		want  []string
	}{
		{
			name: "All Reachable Through Branches And Loops",
			graph: &domain.Graph{StartNode: "start", Nodes: []domain.Node{
				{Name: "start", Next: "check"},
				{Name: "check", ConditionKey: "ok", NextIfTrue: "end", NextIfFalse: "start"},
				{Name: "end"},
			}},
		},
		{
			name: "Orphans Reported In Definition Order",
			graph: &domain.Graph{StartNode: "a", Nodes: []domain.Node{
				{Name: "z", Next: "y"},
				{Name: "a"},
				{Name: "y", Next: "a"},
			}},
			want: []string{"z", "y"},
		},
		{
			name: "Dangling Successor Is Ignored",
			graph: &domain.Graph{StartNode: "a", Nodes: []domain.Node{
				{Name: "a", Next: "ghost"},
			}},
		},
		{
			name: "Unknown Start Reaches Nothing",
			graph: &domain.Graph{StartNode: "nope", Nodes: []domain.Node{
				{Name: "a"},
			}},
			want: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unreachable(tt.graph))
		})
	}
}

func TestTerminals(t *testing.T) {
	g := &domain.Graph{StartNode: "a", Nodes: []domain.Node{
		{Name: "a", Next: "b"},
		{Name: "b", ConditionKey: "done", NextIfFalse: "b"},
		{Name: "c"},
	}}
	assert.Equal(t, []string{"b", "c"}, Terminals(g))

	loop := &domain.Graph{StartNode: "a", Nodes: []domain.Node{{Name: "a", Next: "a"}}}
	assert.Empty(t, Terminals(loop))
}
