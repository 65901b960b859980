package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepgraph/pkg/adapters/process"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/registry"
)

func shTool(t *testing.T, script string) *process.Tool {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process tool tests rely on /bin/sh")
	}
	return process.NewTool(process.ToolConfig{Name: "sh", Command: "sh", Args: []string{"-c", script}})
}

func TestTool_Apply(t *testing.T) {
	ctx := context.Background()

	t.Run("Stdout Object Is The Fragment", func(t *testing.T) {
		tool := shTool(t, `echo '{"count": 2, "ok": true, "name": "x"}'`)

		out, err := tool.Apply(ctx, domain.State{})
		require.NoError(t, err)
		assert.Equal(t, domain.State{"count": int64(2), "ok": true, "name": "x"}, out)
	})

	t.Run("State Arrives On Stdin", func(t *testing.T) {
		tool := shTool(t, `cat`)

		out, err := tool.Apply(ctx, domain.State{"text": "hello", "nested": map[string]any{"n": 1}})
		require.NoError(t, err)
		assert.Equal(t, "hello", out["text"])
		assert.Equal(t, map[string]any{"n": int64(1)}, out["nested"])
	})

	t.Run("Scalars Are Exported As Env", func(t *testing.T) {
		tool := shTool(t, `printf '{"seen": "%s-%s"}' "$STEPGRAPH_ARG_TEXT" "$STEPGRAPH_ARG_DONE"`)

		out, err := tool.Apply(ctx, domain.State{"text": "hi", "done": false, "list": []any{1}})
		require.NoError(t, err)
		assert.Equal(t, "hi-false", out["seen"])
	})

	t.Run("Configured Env", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("relies on /bin/sh")
		}
		tool := process.NewTool(process.ToolConfig{
			Name:        "env",
			Command:     "sh",
			Args:        []string{"-c", `printf '{"mode": "%s"}' "$MODE"`},
			Environment: map[string]string{"MODE": "fast"},
		})

		out, err := tool.Apply(ctx, domain.State{})
		require.NoError(t, err)
		assert.Equal(t, "fast", out["mode"])
	})

	t.Run("Empty Output Is An Empty Fragment", func(t *testing.T) {
		out, err := shTool(t, `true`).Apply(ctx, domain.State{})
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("Non Zero Exit Carries Stderr", func(t *testing.T) {
		_, err := shTool(t, `echo "Something went terribly wrong" >&2; exit 123`).Apply(ctx, domain.State{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exit status 123")
		assert.Contains(t, err.Error(), "Something went terribly wrong")
	})

	t.Run("Non Object Output Fails", func(t *testing.T) {
		_, err := shTool(t, `echo '[1,2]'`).Apply(ctx, domain.State{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a JSON object")
	})

	t.Run("Context Cancellation Kills The Process", func(t *testing.T) {
		tool := shTool(t, `exec sleep 5`)
		ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := tool.Apply(ctx, domain.State{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 4*time.Second)
	})
}

func TestRegister(t *testing.T) {
	reg := registry.New()
	configs := []process.ToolConfig{
		{Name: "a", Command: "true", Description: "does a"},
		{Name: "b", Command: "true"},
	}

	require.NoError(t, process.Register(reg, configs))
	assert.Equal(t, []string{"a", "b"}, reg.Names())
	assert.Equal(t, "does a", reg.Describe()[0].Description)

	var dup *domain.DuplicateToolError
	assert.ErrorAs(t, process.Register(reg, configs[:1]), &dup)

	require.NoError(t, process.Register(reg, []process.ToolConfig{
		{Name: "c", Command: "true", Inputs: map[string]string{"text": "string", "limit": "int?"}},
	}))
	assert.Equal(t, []string{"limit", "text"}, reg.Describe()[2].Reads)

	err := process.Register(reg, []process.ToolConfig{{Name: "d", Command: "true", Inputs: map[string]string{"x": "nope"}}})
	assert.ErrorContains(t, err, `tool "d" inputs`)
}

func TestTool_InputSchema(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on /bin/sh")
	}
	tool := process.NewTool(process.ToolConfig{
		Name:    "needs_text",
		Command: "sh",
		Args:    []string{"-c", `echo '{"ran": true}'`},
		Inputs:  map[string]string{"text": "string", "limit": "int?"},
	})
	ctx := context.Background()

	out, err := tool.Apply(ctx, domain.State{"text": "hi", "limit": int64(3)})
	require.NoError(t, err)
	assert.Equal(t, true, out["ran"])

	_, err = tool.Apply(ctx, domain.State{"limit": "three"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input for needs_text")
	assert.Contains(t, err.Error(), `field "text": required`)

	broken := process.NewTool(process.ToolConfig{Name: "broken", Command: "true", Inputs: map[string]string{"x": "nope"}})
	_, err = broken.Apply(ctx, domain.State{"x": 1})
	assert.ErrorContains(t, err, "unsupported type: nope")
}

func TestLoadTools(t *testing.T) {
	dir := t.TempDir()

	t.Run("YAML", func(t *testing.T) {
		path := filepath.Join(dir, "tools.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
tools:
  - name: word_count
    command: wc
    args: ["-w"]
    env:
      LC_ALL: C
    description: counts words
  - name: upper
    command: tr
`), 0644))

		tools, err := process.LoadTools(path)
		require.NoError(t, err)
		require.Len(t, tools, 2)
		assert.Equal(t, "word_count", tools[0].Name)
		assert.Equal(t, []string{"-w"}, tools[0].Args)
		assert.Equal(t, "C", tools[0].Environment["LC_ALL"])
		assert.Equal(t, "upper", tools[1].Name)
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "tools.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"tools": [{"name": "a", "command": "true"}]}`), 0644))

		tools, err := process.LoadTools(path)
		require.NoError(t, err)
		assert.Equal(t, []process.ToolConfig{{Name: "a", Command: "true"}}, tools)
	})

	t.Run("Invalid Entries", func(t *testing.T) {
		cases := map[string]string{
			"missing name":    "tools:\n  - command: x\n",
			"missing command": "tools:\n  - name: x\n",
			"duplicate":       "tools:\n  - {name: x, command: y}\n  - {name: x, command: z}\n",
			"bad input type":  "tools:\n  - name: x\n    command: y\n    inputs: {n: integer}\n",
		}
		for name, body := range cases {
			path := filepath.Join(dir, "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := process.LoadTools(path)
			assert.Error(t, err, name)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := process.LoadTools(filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})
}
