package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepgraph/pkg/domain"
)

func TestState_MergeIsKeyOverwrite(t *testing.T) {
	s := domain.State{"a": 1}

	s.Merge(domain.State{"b": 2})
	assert.Equal(t, domain.State{"a": 1, "b": 2}, s)

	s.Merge(domain.State{"a": 3})
	assert.Equal(t, domain.State{"a": 3, "b": 2}, s)
}

func TestState_MergeReplacesNestedValuesWhole(t *testing.T) {
	s := domain.State{"cfg": map[string]any{"x": 1, "y": 2}}

	s.Merge(domain.State{"cfg": map[string]any{"z": 3}})

	assert.Equal(t, map[string]any{"z": 3}, s["cfg"])
}

func TestState_CloneIsDeep(t *testing.T) {
	orig := domain.State{
		"list":   []any{"a", map[string]any{"k": "v"}},
		"nested": map[string]any{"inner": []string{"x"}},
	}

	cp := orig.Clone()
	cp["list"].([]any)[1].(map[string]any)["k"] = "changed"
	cp["nested"].(map[string]any)["inner"].([]string)[0] = "y"

	assert.Equal(t, "v", orig["list"].([]any)[1].(map[string]any)["k"])
	assert.Equal(t, "x", orig["nested"].(map[string]any)["inner"].([]string)[0])
}

func TestState_MergeDoesNotAliasFragment(t *testing.T) {
	s := domain.State{}
	fragment := domain.State{"chunks": []any{"a"}}

	s.Merge(fragment)
	fragment["chunks"].([]any)[0] = "mutated"

	assert.Equal(t, []any{"a"}, s["chunks"])
}

func TestState_Delta(t *testing.T) {
	s := domain.State{"a": 1, "b": "same"}

	delta := s.Delta(domain.State{"a": 2, "b": "same", "c": true})

	assert.Equal(t, domain.State{"a": 2, "c": true}, delta)
}

func TestState_Validate(t *testing.T) {
	t.Run("Supported Kinds", func(t *testing.T) {
		s := domain.State{
			"nil":    nil,
			"bool":   true,
			"string": "s",
			"int":    3,
			"float":  1.5,
			"number": json.Number("42"),
			"map":    map[string]any{"deep": []any{1, "two", false}},
			"list":   []string{"a"},
		}
		assert.NoError(t, s.Validate())
	})

	t.Run("Unsupported Kind", func(t *testing.T) {
		s := domain.State{"ok": 1, "bad": map[string]any{"ch": make(chan int)}}

		err := s.Validate()
		require.Error(t, err)
		var kindErr *domain.ValueKindError
		require.ErrorAs(t, err, &kindErr)
		assert.Equal(t, "bad.ch", kindErr.Key)
	})

	t.Run("Self Containing Map", func(t *testing.T) {
		m := map[string]any{"v": 1}
		m["self"] = m

		err := domain.State{"m": m}.Validate()
		var kindErr *domain.ValueKindError
		require.ErrorAs(t, err, &kindErr)
		assert.True(t, kindErr.Cyclic)
		assert.Equal(t, "m.self", kindErr.Key)
	})

	t.Run("Self Containing Slice", func(t *testing.T) {
		list := []any{nil}
		list[0] = map[string]any{"back": list}

		err := domain.State{"l": list}.Validate()
		var kindErr *domain.ValueKindError
		require.ErrorAs(t, err, &kindErr)
		assert.True(t, kindErr.Cyclic)
		assert.Equal(t, "l[0].back", kindErr.Key)
	})

	t.Run("Shared But Acyclic", func(t *testing.T) {
		shared := map[string]any{"x": 1}
		s := domain.State{"a": shared, "b": []any{shared, shared}}
		assert.NoError(t, s.Validate())
	})

	t.Run("Clone Keeps Cycle Detectable", func(t *testing.T) {
		m := map[string]any{}
		m["self"] = m

		cloned := domain.State{"m": m}.Clone()
		assert.Error(t, cloned.Validate())
	})
}

func TestRunStatus_IsTerminal(t *testing.T) {
	assert.False(t, domain.StatusRunning.IsTerminal())
	assert.True(t, domain.StatusCompleted.IsTerminal())
	assert.True(t, domain.StatusFailed.IsTerminal())
	assert.True(t, domain.StatusStepLimitExceeded.IsTerminal())
}

func TestParseRunStatus(t *testing.T) {
	s, err := domain.ParseRunStatus("step_limit_exceeded")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStepLimitExceeded, s)

	_, err = domain.ParseRunStatus("done")
	assert.ErrorContains(t, err, `unknown run status "done"`)
}

func TestNewRun(t *testing.T) {
	initial := domain.State{"x": map[string]any{"y": 1}}

	run := domain.NewRun("r1", "g1", "start", initial, 0)

	assert.Equal(t, domain.StatusRunning, run.Status)
	assert.Equal(t, "start", run.CurrentNode)
	assert.Equal(t, domain.DefaultMaxSteps, run.MaxSteps)
	assert.Empty(t, run.Log)

	run.State["x"].(map[string]any)["y"] = 2
	assert.Equal(t, 1, initial["x"].(map[string]any)["y"], "initial state must not be aliased")
}

func TestGraphValidationError_Message(t *testing.T) {
	err := &domain.GraphValidationError{Violations: []domain.Violation{
		{Node: "a", Field: "next", Reason: `unknown node "x"`},
		{Field: "start_node", Reason: "is required"},
	}}

	assert.Contains(t, err.Error(), "2 violations")
	assert.Contains(t, err.Error(), `node "a" next`)
	assert.Len(t, domain.Violations(err), 2)
	assert.Nil(t, domain.Violations(assert.AnError))
}
