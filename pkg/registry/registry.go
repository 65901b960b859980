package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/stepgraph/pkg/domain"
)

var (
	ErrToolNameEmpty = errors.New("tool name is empty")
	ErrNilTool       = errors.New("tool is nil")
)

// Tool is the single operation every node executes.
// It receives a copy of the current state and returns the fragment to merge.
// Blocking tools must honour ctx.
type Tool interface {
	Apply(ctx context.Context, state domain.State) (domain.State, error)
}

// ToolFunc adapts a plain function to the Tool interface.
type ToolFunc func(ctx context.Context, state domain.State) (domain.State, error)

// Apply calls f.
func (f ToolFunc) Apply(ctx context.Context, state domain.State) (domain.State, error) {
	return f(ctx, state)
}

type entry struct {
	tool Tool
	info domain.ToolInfo
}

// Registry manages the available tools.
// It is safe for concurrent use; in practice it is populated at startup and
// only read afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		tools: make(map[string]entry),
	}
}

// Register adds a tool to the registry.
// Re-registering a name fails with *domain.DuplicateToolError.
func (r *Registry) Register(name string, tool Tool) error {
	return r.RegisterInfo(domain.ToolInfo{Name: name}, tool)
}

// RegisterInfo adds a tool together with its descriptive metadata.
func (r *Registry) RegisterInfo(info domain.ToolInfo, tool Tool) error {
	if info.Name == "" {
		return ErrToolNameEmpty
	}
	if tool == nil {
		return fmt.Errorf("%w: %q", ErrNilTool, info.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[info.Name]; exists {
		return &domain.DuplicateToolError{Name: info.Name}
	}
	r.tools[info.Name] = entry{tool: tool, info: info}
	return nil
}

// MustRegister is like Register but panics on error.
// Intended for wiring built-in tools at startup.
func (r *Registry) MustRegister(name string, tool Tool) {
	if err := r.Register(name, tool); err != nil {
		panic(err)
	}
}

// Resolve looks up a tool by name.
// Returns *domain.UnknownToolError if the tool is not registered.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &domain.UnknownToolError{Tool: name}
	}
	return e.tool, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns metadata for every registered tool, sorted by name.
func (r *Registry) Describe() []domain.ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ToolInfo, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
