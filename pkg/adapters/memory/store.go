package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// GraphStore implements ports.GraphStore in memory.
// Safe for concurrent use.
type GraphStore struct {
	data map[string]*domain.Graph
	mu   sync.RWMutex
}

// NewGraphStore creates a new in-memory graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		data: make(map[string]*domain.Graph),
	}
}

// Save stores a copy of the graph.
func (s *GraphStore) Save(ctx context.Context, g *domain.Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[g.ID] = g.Clone()
	return nil
}

// Get returns a copy so callers can't mutate the stored definition.
func (s *GraphStore) Get(ctx context.Context, id string) (*domain.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.data[id]
	if !ok {
		return nil, domain.ErrGraphNotFound
	}
	return g.Clone(), nil
}

// List returns the stored graph IDs in sorted order.
func (s *GraphStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.data), nil
}

// RunStore implements ports.RunStore in memory.
// Safe for concurrent use.
type RunStore struct {
	data map[string]*domain.Run
	mu   sync.RWMutex
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.Run),
	}
}

// Save persists a deep copy of the run.
func (s *RunStore) Save(ctx context.Context, run *domain.Run) error {
	copied := run.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[run.ID] = copied
	return nil
}

// Get retrieves a deep copy of the run.
func (s *RunStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run.Clone(), nil
}

// List returns the stored run IDs in sorted order.
func (s *RunStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.data), nil
}

// Delete removes the run.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
