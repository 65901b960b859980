package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepgraph/pkg/adapters/sqlite"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
)

var (
	_ ports.GraphStore = (*sqlite.GraphStore)(nil)
	_ ports.RunStore   = (*sqlite.RunStore)(nil)
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "stepgraph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	store := newTestStore(t)

	t.Run("Graphs", func(t *testing.T) {
		ports.RunGraphStoreContract(t, store.Graphs())
	})
	t.Run("Runs", func(t *testing.T) {
		ports.RunRunStoreContract(t, store.Runs())
	})
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Graphs().Save(ctx, &domain.Graph{ID: "g", StartNode: "a"}))

	g, err := store.Graphs().Get(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, "a", g.StartNode)
}

func TestSQLiteStore_ListByStatus(t *testing.T) {
	runs := newTestStore(t).Runs()
	ctx := context.Background()

	done := domain.NewRun("done", "g", "a", nil, 0)
	done.Status = domain.StatusCompleted
	require.NoError(t, runs.Save(ctx, done))
	require.NoError(t, runs.Save(ctx, domain.NewRun("busy", "g", "a", nil, 0)))

	ids, err := runs.ListByStatus(ctx, domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, []string{"done"}, ids)

	ids, err = runs.ListByStatus(ctx, domain.StatusFailed)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSQLiteStore_ListIsSortedByID(t *testing.T) {
	runs := newTestStore(t).Runs()
	ctx := context.Background()

	later := domain.NewRun("a-late", "g", "a", nil, 0)
	later.StartedAt = later.StartedAt.Add(time.Hour)
	require.NoError(t, runs.Save(ctx, later))
	require.NoError(t, runs.Save(ctx, domain.NewRun("b-early", "g", "a", nil, 0)))

	ids, err := runs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-late", "b-early"}, ids)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	first, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Runs().Save(ctx, domain.NewRun("r1", "g", "a", domain.State{"k": "v"}, 0)))
	require.NoError(t, first.Close())

	second, err := sqlite.Open(path)
	require.NoError(t, err)
	defer second.Close()

	run, err := second.Runs().Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "v", run.State["k"])
}
