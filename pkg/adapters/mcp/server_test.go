package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
)

const yamlGraph = `
start_node: count
nodes:
  - name: count
    tool: count
    condition_key: done
    next_if_true: null
    next_if_false: count
`

func newTestServer(t *testing.T) (*Server, *stepgraph.Engine) {
	t.Helper()
	reg := registry.New()
	reg.MustRegister("count", registry.ToolFunc(func(ctx context.Context, s domain.State) (domain.State, error) {
		n, _ := s["n"].(int64)
		return domain.State{"n": n + 1, "done": n+1 >= 2}, nil
	}))
	eng := stepgraph.New(stepgraph.WithRegistry(reg))
	return NewServer(eng), eng
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestCreateAndRunGraph(t *testing.T) {
	s, eng := newTestServer(t)
	ctx := context.Background()

	created, err := s.handleCreateGraph(ctx, callRequest("create_graph", nil), map[string]any{"graph": yamlGraph})
	require.NoError(t, err)
	require.NotEmpty(t, created.GraphID)

	g, err := eng.GetGraph(ctx, created.GraphID)
	require.NoError(t, err)
	assert.Equal(t, "count", g.StartNode)

	result, err := s.handleRunGraph(ctx, callRequest("run_graph", nil), map[string]any{
		"graph_id":      created.GraphID,
		"initial_state": `{"n": 0}`,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, result.Status)
	assert.Equal(t, []string{"count", "count"}, result.Visited)
	assert.Equal(t, int64(2), result.FinalState["n"])
	require.Len(t, result.Log, 2)
	assert.Equal(t, 0, result.Log[0].Index)
	assert.Equal(t, "count", result.Log[0].Next)
	assert.Equal(t, int64(1), result.Log[0].Delta["n"])
	assert.Empty(t, result.Log[1].Next)
	assert.Equal(t, result.FinalState, result.Log[1].State)

	limited, err := s.handleRunGraph(ctx, callRequest("run_graph", nil), map[string]any{
		"graph_id":  created.GraphID,
		"max_steps": float64(1),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStepLimitExceeded, limited.Status)

	res, err := s.handleGetRun(ctx, callRequest("get_run", map[string]any{"run_id": result.RunID}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	var run domain.Run
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &run))
	assert.Equal(t, result.RunID, run.ID)
	assert.Len(t, run.Log, 2)
}

func TestCreateGraph_Errors(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleCreateGraph(ctx, callRequest("create_graph", nil), map[string]any{})
	assert.Error(t, err)

	_, err = s.handleCreateGraph(ctx, callRequest("create_graph", nil), map[string]any{
		"graph": `{"start_node": "a", "nodes": [{"name": "a", "tool": "ghost"}]}`,
	})
	require.Error(t, err)
	assert.NotEmpty(t, domain.Violations(err))
}

func TestRunGraph_Errors(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleRunGraph(ctx, callRequest("run_graph", nil), map[string]any{})
	assert.Error(t, err)

	_, err = s.handleRunGraph(ctx, callRequest("run_graph", nil), map[string]any{"graph_id": "nope"})
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)

	_, err = s.handleRunGraph(ctx, callRequest("run_graph", nil), map[string]any{"graph_id": "nope", "initial_state": "[1]"})
	assert.ErrorContains(t, err, "initial_state")
}

func TestGetRun_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.handleGetRun(context.Background(), callRequest("get_run", map[string]any{"run_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListTools(t *testing.T) {
	s, _ := newTestServer(t)

	out, err := s.handleListTools(context.Background(), callRequest("list_tools", nil), nil)
	require.NoError(t, err)
	require.Len(t, out.Tools, 1)
	assert.Equal(t, "count", out.Tools[0].Name)
}

func TestGraphResources(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	created, err := s.handleCreateGraph(ctx, callRequest("create_graph", nil), map[string]any{"graph": yamlGraph})
	require.NoError(t, err)

	var list mcp.ReadResourceRequest
	list.Params.URI = graphsURI
	contents, err := s.readGraphs(ctx, list)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.JSONEq(t, `["`+created.GraphID+`"]`, contents[0].(mcp.TextResourceContents).Text)

	var one mcp.ReadResourceRequest
	one.Params.URI = graphsURI + "/" + created.GraphID
	contents, err = s.readGraph(ctx, one)
	require.NoError(t, err)
	var g domain.Graph
	require.NoError(t, json.Unmarshal([]byte(contents[0].(mcp.TextResourceContents).Text), &g))
	assert.Equal(t, created.GraphID, g.ID)

	one.Params.URI = graphsURI + "/missing"
	_, err = s.readGraph(ctx, one)
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)

	one.Params.URI = "other://x"
	_, err = s.readGraph(ctx, one)
	assert.Error(t, err)
}

func TestNewServer_RegistersTools(t *testing.T) {
	s, _ := newTestServer(t)
	tools := s.MCPServer().ListTools()
	for _, name := range []string{"create_graph", "run_graph", "get_run", "list_tools"} {
		assert.Contains(t, tools, name)
	}
}

func TestSSEHandler_Preflight(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.SSEHandler("http://localhost:0")

	req := httptest.NewRequest(http.MethodOptions, "/message", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
