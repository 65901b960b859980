package ports

import (
	"context"
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunGraphStoreContract runs a suite of tests to verify that a GraphStore
// implementation adheres to the defined interface contract.
func RunGraphStoreContract(t *testing.T, store GraphStore) {
	ctx := context.Background()
	graphID := "contract-graph-" + time.Now().Format("20060102150405.000000000")

	newGraph := func(id string) *domain.Graph {
		return &domain.Graph{
			ID:        id,
			StartNode: "a",
			Nodes: []domain.Node{
				{Name: "a", Tool: "t1", Next: "b"},
				{Name: "b", Tool: "t2", ConditionKey: "done", NextIfFalse: "b"},
			},
		}
	}

	t.Run("Save and Get", func(t *testing.T) {
		g := newGraph(graphID)
		require.NoError(t, store.Save(ctx, g), "Save should not return error")

		loaded, err := store.Get(ctx, graphID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, g, loaded)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+graphID)
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("Returned Graph Is A Copy", func(t *testing.T) {
		loaded, err := store.Get(ctx, graphID)
		require.NoError(t, err)
		loaded.Nodes[0].Next = "tampered"

		again, err := store.Get(ctx, graphID)
		require.NoError(t, err)
		assert.Equal(t, "b", again.Nodes[0].Next)
	})

	t.Run("List", func(t *testing.T) {
		id2 := graphID + "-2"
		require.NoError(t, store.Save(ctx, newGraph(id2)))
		tmpID := "tmp-" + graphID
		require.NoError(t, store.Save(ctx, newGraph(tmpID)))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, graphID)
		assert.Contains(t, ids, id2)
		assert.Contains(t, ids, tmpID)
		assert.True(t, slices.IsSorted(ids), "List returns ids in lexicographic order: %v", ids)
	})
}

// RunRunStoreContract runs a suite of tests to verify that a RunStore
// implementation adheres to the defined interface contract.
func RunRunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405.000000000")

	newRun := func(id string) *domain.Run {
		run := domain.NewRun(id, "graph-1", "start", domain.State{
			"text":   "hello",
			"count":  42,
			"nested": map[string]any{"ok": true},
		}, 10)
		run.Log = append(run.Log, domain.StepEntry{
			Index:     0,
			Node:      "start",
			Tool:      "noop",
			Timestamp: time.Now().UTC().Truncate(time.Millisecond),
			State:     domain.State{"text": "hello"},
			Delta:     domain.State{"text": "hello"},
			Next:      "end",
		})
		return run
	}

	t.Run("Save and Get", func(t *testing.T) {
		run := newRun(runID)
		require.NoError(t, store.Save(ctx, run), "Save should not return error")

		loaded, err := store.Get(ctx, runID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, run.ID, loaded.ID)
		assert.Equal(t, run.GraphID, loaded.GraphID)
		assert.Equal(t, domain.StatusRunning, loaded.Status)
		assert.Equal(t, run.CurrentNode, loaded.CurrentNode)
		assert.Equal(t, run.MaxSteps, loaded.MaxSteps)
		require.Len(t, loaded.Log, 1)
		assert.Equal(t, "start", loaded.Log[0].Node)
		assert.Equal(t, "end", loaded.Log[0].Next)
		// Serializing stores turn numbers into float64; compare the JSON forms.
		assertJSONEqual(t, run.State, loaded.State)
		assertJSONEqual(t, run.Log[0].State, loaded.Log[0].State)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		run := newRun(runID)
		run.Status = domain.StatusCompleted
		run.CurrentNode = ""
		finished := time.Now().UTC().Truncate(time.Millisecond)
		run.FinishedAt = &finished
		require.NoError(t, store.Save(ctx, run))

		loaded, err := store.Get(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)
		assert.Empty(t, loaded.CurrentNode)
		require.NotNil(t, loaded.FinishedAt)
		assert.True(t, finished.Equal(*loaded.FinishedAt))
	})

	t.Run("Stored Run Is Isolated", func(t *testing.T) {
		run := newRun(runID + "-iso")
		require.NoError(t, store.Save(ctx, run))
		defer func() { _ = store.Delete(ctx, run.ID) }()

		run.State["text"] = "mutated after save"

		loaded, err := store.Get(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello", loaded.State["text"])

		loaded.State["text"] = "mutated after get"
		again, err := store.Get(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello", again.State["text"])
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newRun(runID)))

		require.NoError(t, store.Delete(ctx, runID), "Delete should not return error")

		_, err := store.Get(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Get after Delete should return ErrRunNotFound")

		assert.NoError(t, store.Delete(ctx, runID), "Delete is idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		tmpID := "tmp-" + runID
		// Saved out of order so insertion order cannot pass for sorting.
		require.NoError(t, store.Save(ctx, newRun(id2)))
		require.NoError(t, store.Save(ctx, newRun(tmpID)))
		require.NoError(t, store.Save(ctx, newRun(id1)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
			_ = store.Delete(ctx, tmpID)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
		assert.Contains(t, ids, tmpID)
		assert.True(t, slices.IsSorted(ids), "List returns ids in lexicographic order: %v", ids)
	})
}

func assertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()
	want, err := json.Marshal(expected)
	require.NoError(t, err)
	got, err := json.Marshal(actual)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}
