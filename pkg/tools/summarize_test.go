package tools_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepgraph/internal/runtime"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
	"github.com/aretw0/stepgraph/pkg/tools"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, tools.Register(reg))
	return reg
}

func apply(t *testing.T, reg *registry.Registry, name string, state domain.State) domain.State {
	t.Helper()
	tool, err := reg.Resolve(name)
	require.NoError(t, err)
	out, err := tool.Apply(context.Background(), state)
	require.NoError(t, err)
	return out
}

func words(n int, prefix string) string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix
	}
	return strings.Join(out, " ")
}

func TestRegister(t *testing.T) {
	reg := newRegistry(t)
	assert.Equal(t, []string{"merge_summaries", "refine_summary", "split_text", "summarize_chunks"}, reg.Names())

	var dup *domain.DuplicateToolError
	assert.ErrorAs(t, tools.Register(reg), &dup)
}

func TestSplitText(t *testing.T) {
	reg := newRegistry(t)

	tests := []struct {
		name  string
		state domain.State
		want  []string
	}{
		{"Empty Text", domain.State{}, []string{}},
		{"Exact Chunks", domain.State{"text": "a b c d", "chunk_size": 2}, []string{"a b", "c d"}},
		{"Remainder", domain.State{"text": "a b c", "chunk_size": 2}, []string{"a b", "c"}},
		{"JSON Number", domain.State{"text": "a b c", "chunk_size": float64(1)}, []string{"a", "b", "c"}},
		{"String Number", domain.State{"text": "a  b\nc", "chunk_size": "5"}, []string{"a b c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := apply(t, reg, tools.SplitText, tt.state)
			assert.Equal(t, tt.want, out["chunks"])
		})
	}

	t.Run("Default Chunk Size", func(t *testing.T) {
		out := apply(t, reg, tools.SplitText, domain.State{"text": words(170, "w")})
		assert.Len(t, out["chunks"], 3)
	})

	t.Run("Invalid Chunk Size", func(t *testing.T) {
		tool, _ := reg.Resolve(tools.SplitText)
		_, err := tool.Apply(context.Background(), domain.State{"text": "a", "chunk_size": 0})
		assert.Error(t, err)
	})
}

func TestSummarizeChunks(t *testing.T) {
	reg := newRegistry(t)

	out := apply(t, reg, tools.SummarizeChunks, domain.State{
		"chunks": []any{"First one. Second one.", "  . Leading dot. x", "...", ""},
	})
	assert.Equal(t, []string{"First one", "Leading dot", "...", ""}, out["summaries"])
}

func TestMergeSummaries(t *testing.T) {
	reg := newRegistry(t)

	out := apply(t, reg, tools.MergeSummaries, domain.State{"summaries": []string{"a", "b"}})
	assert.Equal(t, "a. b", out["merged_summary"])

	out = apply(t, reg, tools.MergeSummaries, domain.State{})
	assert.Equal(t, "", out["merged_summary"])
}

func TestRefineSummary(t *testing.T) {
	reg := newRegistry(t)

	t.Run("Within Limit", func(t *testing.T) {
		out := apply(t, reg, tools.RefineSummary, domain.State{"merged_summary": "short text"})
		assert.Equal(t, true, out["summary_within_limit"])
		assert.Equal(t, 1, out["iteration"])
		assert.Equal(t, "short text", out["final_summary"])
		assert.NotContains(t, out, "merged_summary")
	})

	t.Run("Too Long Trims", func(t *testing.T) {
		out := apply(t, reg, tools.RefineSummary, domain.State{
			"merged_summary": words(10, "w"),
			"target_length":  4,
			"iteration":      float64(1),
		})
		assert.Equal(t, false, out["summary_within_limit"])
		assert.Equal(t, 2, out["iteration"])
		assert.Equal(t, "w w w w", out["merged_summary"])
	})

	t.Run("Max Iterations Stops", func(t *testing.T) {
		out := apply(t, reg, tools.RefineSummary, domain.State{
			"merged_summary": words(10, "w"),
			"target_length":  4,
			"max_iterations": 3,
			"iteration":      2,
		})
		assert.Equal(t, true, out["summary_within_limit"])
		assert.Equal(t, "w w w w", out["final_summary"])
	})
}

func TestExampleGraph_EndToEnd(t *testing.T) {
	reg := newRegistry(t)
	engine := runtime.NewEngine(reg)
	g := tools.ExampleGraph("summarize")
	require.NoError(t, engine.Validate(g))

	text := strings.Repeat("This sentence has exactly seven words here. ", 40)
	run := engine.Execute(context.Background(), g, domain.State{
		"text":          text,
		"chunk_size":    7,
		"target_length": 20,
	}, 10)

	require.Equal(t, domain.StatusCompleted, run.Status, run.Error)
	assert.Equal(t, []string{"split_text", "summarize_chunks", "merge_summaries", "refine_summary", "refine_summary"}, run.Visited())
	assert.Equal(t, true, run.State["summary_within_limit"])
	assert.Equal(t, 2, run.State["iteration"])
	assert.Len(t, strings.Fields(run.State["final_summary"].(string)), 20)
}
