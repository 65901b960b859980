package ports

import (
	"context"
	"errors"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// GraphStore persists validated graph definitions.
type GraphStore interface {
	// Save stores the graph under g.ID, replacing any previous definition.
	Save(ctx context.Context, g *domain.Graph) error

	// Get retrieves a graph by ID.
	// Returns domain.ErrGraphNotFound if the graph does not exist.
	Get(ctx context.Context, id string) (*domain.Graph, error)

	// List returns the IDs of all stored graphs.
	List(ctx context.Context) ([]string, error)
}

// RunStore persists run records so they can be inspected after execution.
type RunStore interface {
	// Save persists the run under run.ID, replacing any previous record.
	Save(ctx context.Context, run *domain.Run) error

	// Get retrieves a run by ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Get(ctx context.Context, id string) (*domain.Run, error)

	// List returns the IDs of all stored runs.
	List(ctx context.Context) ([]string, error)

	// Delete removes a run. Deleting an unknown run is not an error.
	Delete(ctx context.Context, id string) error
}

// RunStatusLister is implemented by run stores that can filter by status
// without loading every record.
type RunStatusLister interface {
	ListByStatus(ctx context.Context, status domain.RunStatus) ([]string, error)
}

// ListRunsByStatus returns the ids of the runs in the given status, sorted
// like List. Stores without RunStatusLister are filtered record by record.
func ListRunsByStatus(ctx context.Context, store RunStore, status domain.RunStatus) ([]string, error) {
	if lister, ok := store.(RunStatusLister); ok {
		return lister.ListByStatus(ctx, status)
	}

	ids, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, id := range ids {
		run, err := store.Get(ctx, id)
		if errors.Is(err, domain.ErrRunNotFound) {
			// Expired or deleted since List.
			continue
		}
		if err != nil {
			return nil, err
		}
		if run.Status == status {
			out = append(out, id)
		}
	}
	return out, nil
}
