package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/loader"
	"github.com/aretw0/stepgraph/pkg/ports"
)

const (
	graphsURI        = "stepgraph://graphs"
	graphURITemplate = "stepgraph://graphs/{id}"
)

// CreateGraphResult is returned by create_graph.
type CreateGraphResult struct {
	GraphID string `json:"graph_id" jsonschema_description:"Identifier of the stored graph"`
}

// RunResult is returned by run_graph.
type RunResult struct {
	RunID      string             `json:"run_id" jsonschema_description:"Identifier of the run record"`
	Status     domain.RunStatus   `json:"status" jsonschema_description:"completed, failed or step_limit_exceeded"`
	FinalState domain.State       `json:"final_state" jsonschema_description:"State after the last executed step"`
	Visited    []string           `json:"visited" jsonschema_description:"Executed node names in order"`
	Log        []domain.StepEntry `json:"log" jsonschema_description:"One entry per executed step with its state snapshot and delta"`
	Error      string             `json:"error,omitempty" jsonschema_description:"Why the run failed, if it did"`
}

// ToolsResult is returned by list_tools.
type ToolsResult struct {
	Tools []domain.ToolInfo `json:"tools"`
}

// Server exposes a stepgraph service as an MCP server.
type Server struct {
	svc       ports.Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the logger for rejected calls.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(svc ports.Service, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("stepgraph-mcp", strings.TrimSpace(stepgraph.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_graph",
		mcp.WithDescription("Validate and store a graph definition. Returns the new graph id."),
		mcp.WithString("graph", mcp.Required(),
			mcp.Description("Graph definition as JSON or YAML: {start_node, nodes: [{name, tool, next | condition_key, next_if_true, next_if_false}]}")),
		mcp.WithOutputSchema[CreateGraphResult](),
	), mcp.NewStructuredToolHandler(s.handleCreateGraph))

	s.mcpServer.AddTool(mcp.NewTool("run_graph",
		mcp.WithDescription("Run a stored graph from its start node and return the final state."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph identifier")),
		mcp.WithString("initial_state", mcp.Description("JSON object used as the initial state (optional)")),
		mcp.WithNumber("max_steps", mcp.Description("Step budget; defaults to 50")),
		mcp.WithOutputSchema[RunResult](),
	), mcp.NewStructuredToolHandler(s.handleRunGraph))

	s.mcpServer.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Get the full record of a run: status, state and step log."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier")),
	), s.handleGetRun)

	s.mcpServer.AddTool(mcp.NewTool("list_tools",
		mcp.WithDescription("List the tools nodes can reference."),
		mcp.WithOutputSchema[ToolsResult](),
	), mcp.NewStructuredToolHandler(s.handleListTools))
}

func (s *Server) handleCreateGraph(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (CreateGraphResult, error) {
	def, _ := args["graph"].(string)
	if strings.TrimSpace(def) == "" {
		return CreateGraphResult{}, fmt.Errorf("graph is required")
	}

	g, err := loader.Parse([]byte(def), loader.FormatYAML)
	if err != nil {
		return CreateGraphResult{}, err
	}
	g.ID = ""

	id, err := s.svc.CreateGraph(ctx, g)
	if err != nil {
		s.logger.Warn("MCP create_graph rejected", "error", err)
		return CreateGraphResult{}, err
	}
	return CreateGraphResult{GraphID: id}, nil
}

func (s *Server) handleRunGraph(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResult, error) {
	graphID, _ := args["graph_id"].(string)
	if graphID == "" {
		return RunResult{}, fmt.Errorf("graph_id is required")
	}

	initial := domain.State{}
	if raw, ok := args["initial_state"].(string); ok && strings.TrimSpace(raw) != "" {
		state, err := loader.ParseState([]byte(raw), loader.FormatJSON)
		if err != nil {
			return RunResult{}, fmt.Errorf("initial_state: %w", err)
		}
		initial = state
	}

	maxSteps := 0
	if n, ok := args["max_steps"].(float64); ok {
		maxSteps = int(n)
	}

	run, err := s.svc.Run(ctx, graphID, initial, maxSteps)
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{
		RunID:      run.ID,
		Status:     run.Status,
		FinalState: run.State,
		Visited:    run.Visited(),
		Log:        run.Log,
		Error:      run.Error,
	}, nil
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := request.GetString("run_id", "")
	run, err := s.svc.GetRun(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get_run failed: %v", err)), nil
	}
	jsonBytes, err := json.Marshal(run)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleListTools(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ToolsResult, error) {
	return ToolsResult{Tools: s.svc.Tools().Describe()}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphsURI, "Stored Graphs",
		mcp.WithResourceDescription("Identifiers of every stored graph"),
		mcp.WithMIMEType("application/json"),
	), s.readGraphs)

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(graphURITemplate, "Graph Definition",
		mcp.WithTemplateDescription("A stored graph definition"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readGraph)
}

func (s *Server) readGraphs(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids, err := s.svc.ListGraphs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	jsonBytes, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      graphsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, graphsURI+"/")
	if id == uri || id == "" {
		return nil, fmt.Errorf("invalid graph uri %q", uri)
	}

	g, err := s.svc.GetGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	jsonBytes, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
