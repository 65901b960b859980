package ports

import (
	"context"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
)

// Service is the driving port used by the transport adapters (HTTP, MCP).
// stepgraph.Engine implements it.
type Service interface {
	Tools() *registry.Registry
	CreateGraph(ctx context.Context, g *domain.Graph) (string, error)
	GetGraph(ctx context.Context, id string) (*domain.Graph, error)
	ListGraphs(ctx context.Context) ([]string, error)
	Run(ctx context.Context, graphID string, initial domain.State, maxSteps int) (*domain.Run, error)
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	ListRuns(ctx context.Context) ([]string, error)
	ListRunsByStatus(ctx context.Context, status domain.RunStatus) ([]string, error)
	DeleteRun(ctx context.Context, id string) error
}
