package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepgraph/pkg/adapters/file"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
)

var (
	_ ports.GraphStore = (*file.GraphStore)(nil)
	_ ports.RunStore   = (*file.RunStore)(nil)
)

func TestFileGraphStore_Contract(t *testing.T) {
	ports.RunGraphStoreContract(t, file.New(t.TempDir()).Graphs())
}

func TestFileRunStore_Contract(t *testing.T) {
	ports.RunRunStoreContract(t, file.New(t.TempDir()).Runs())
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Graphs().Save(ctx, &domain.Graph{ID: "g1", StartNode: "a"}))
	require.NoError(t, store.Runs().Save(ctx, domain.NewRun("r1", "g1", "a", nil, 0)))

	assert.FileExists(t, filepath.Join(dir, "graphs", "g1.json"))
	assert.FileExists(t, filepath.Join(dir, "runs", "r1.json"))

	leftovers, err := filepath.Glob(filepath.Join(dir, "runs", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp files are cleaned up after rename")
}

func TestFileStore_ListSkipsInFlightWrites(t *testing.T) {
	dir := t.TempDir()
	runs := file.New(dir).Runs()
	ctx := context.Background()

	require.NoError(t, runs.Save(ctx, domain.NewRun("tmp-report", "g1", "a", nil, 0)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "runs", ".r2.json.123.tmp"), []byte("{"), 0o644))

	ids, err := runs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tmp-report"}, ids)
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	runs := file.New(t.TempDir()).Runs()
	ctx := context.Background()

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, runs.Save(ctx, domain.NewRun(id, "g", "a", nil, 0)), "id %q", id)
	}
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))

	ids, err := store.Runs().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "runs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "runs", "bad.json"), []byte("{not json"), 0644))

	_, err := file.New(dir).Runs().Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRunNotFound)
}
