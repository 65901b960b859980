package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// Store implements ports.GraphStore and ports.RunStore using the local
// filesystem. Graphs and runs are kept as JSON files under BasePath/graphs
// and BasePath/runs.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".stepgraph".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = ".stepgraph"
	}
	return &Store{BasePath: basePath}
}

// Graphs returns a view of the store satisfying ports.GraphStore.
func (s *Store) Graphs() *GraphStore {
	return &GraphStore{dir: filepath.Join(s.BasePath, "graphs")}
}

// Runs returns a view of the store satisfying ports.RunStore.
func (s *Store) Runs() *RunStore {
	return &RunStore{dir: filepath.Join(s.BasePath, "runs")}
}

// GraphStore persists graph definitions as JSON files.
type GraphStore struct {
	dir string
}

func (s *GraphStore) Save(ctx context.Context, g *domain.Graph) error {
	return writeJSON(s.dir, g.ID, g)
}

func (s *GraphStore) Get(ctx context.Context, id string) (*domain.Graph, error) {
	var g domain.Graph
	if err := readJSON(s.dir, id, &g); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrGraphNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (s *GraphStore) List(ctx context.Context) ([]string, error) {
	return listIDs(s.dir)
}

// RunStore persists run records as JSON files.
type RunStore struct {
	dir string
}

func (s *RunStore) Save(ctx context.Context, run *domain.Run) error {
	return writeJSON(s.dir, run.ID, run)
}

func (s *RunStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	var run domain.Run
	if err := readJSON(s.dir, id, &run); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

func (s *RunStore) List(ctx context.Context) ([]string, error) {
	return listIDs(s.dir)
}

// Delete removes the run file.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	path, err := filePath(s.dir, id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete run file: %w", err)
	}
	return nil
}

func filePath(dir, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid id %q", id)
	}
	return filepath.Join(dir, id+".json"), nil
}

// writeJSON persists v atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func writeJSON(dir, id string, v any) error {
	destPath, err := filePath(dir, id)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	// Same directory, so the rename stays on one filesystem. The .tmp
	// extension keeps in-flight writes out of listIDs.
	tmpFile, err := os.CreateTemp(dir, "."+id+".json.*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func readJSON(dir, id string, v any) error {
	path, err := filePath(dir, id)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}
	return nil
}

func listIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
