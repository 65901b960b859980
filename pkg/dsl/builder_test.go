package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepgraph/pkg/domain"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New("flow")
	b.Add("start").Do("greet").Go("check")
	b.Add("check").Branch("ok", "done", "start")
	b.Add("done").Terminal()

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "flow", g.ID)
	assert.Equal(t, "start", g.StartNode)
	assert.Equal(t, []domain.Node{
		{Name: "start", Tool: "greet", Next: "check"},
		{Name: "check", Tool: "check", ConditionKey: "ok", NextIfTrue: "done", NextIfFalse: "start"},
		{Name: "done", Tool: "done"},
	}, g.Nodes)
}

func TestBuilder_AddIsIdempotent(t *testing.T) {
	b := New("g")
	first := b.Add("a")
	assert.Same(t, first, b.Add("a"))
	assert.Len(t, b.Graph().Nodes, 1)
}

func TestBuilder_Loop(t *testing.T) {
	b := New("g")
	b.Add("refine").Loop("done", "")

	n := b.Add("refine").Build()
	assert.Equal(t, "done", n.ConditionKey)
	assert.Equal(t, "refine", n.NextIfFalse)
	assert.Empty(t, n.NextIfTrue)
}

func TestBuilder_GoClearsBranch(t *testing.T) {
	b := New("g")
	n := b.Add("a").Branch("k", "a", "a").Go("")
	assert.False(t, n.Build().IsBranching())
}

func TestBuilder_StartAndChaining(t *testing.T) {
	g, err := New("g").Start("b").
		Add("a").Go("b").
		Add("b").Go("a").
		builder.Build()
	require.NoError(t, err)
	assert.Equal(t, "b", g.StartNode)
}

func TestBuilder_BuildValidates(t *testing.T) {
	b := New("g")
	b.Add("a").Go("missing")

	_, err := b.Build()
	require.Error(t, err)
	assert.Equal(t, []domain.Violation{
		{Node: "a", Field: "next", Reason: `unknown node "missing"`},
	}, domain.Violations(err))
}
