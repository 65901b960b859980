package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stepgraph/internal/runtime"
	"github.com/aretw0/stepgraph/internal/testutils"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/observability"
	"github.com/aretw0/stepgraph/pkg/registry"
)

func TestMetrics_RecordsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	tools := testutils.NewRegistry(t, map[string]registry.Tool{
		"a":    testutils.Noop(),
		"fail": testutils.Fail(),
	})
	engine := runtime.NewEngine(tools, runtime.WithLifecycleHooks(metrics.Hooks()))

	ok := engine.Execute(context.Background(), testutils.Chain("a"), nil, 5)
	require.Equal(t, domain.StatusCompleted, ok.Status)
	bad := engine.Execute(context.Background(), testutils.Chain("a", "fail"), nil, 5)
	require.Equal(t, domain.StatusFailed, bad.Status)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.NodeVisits.WithLabelValues("a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NodeVisits.WithLabelValues("fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ToolErrors.WithLabelValues("fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues("failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.ToolDuration), "one series per tool")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "stepgraph_runs_total")
	assert.Contains(t, names, "stepgraph_tool_duration_seconds")
}

func TestNewMetrics_NilRegisterer(t *testing.T) {
	assert.NotPanics(t, func() {
		observability.NewMetrics(nil)
		observability.NewMetrics(nil)
	})
}

func TestCombine(t *testing.T) {
	var order []string
	first := domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) { order = append(order, "first:"+e.Node) },
	}
	second := domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) { order = append(order, "second:"+e.Node) },
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) { order = append(order, "finish") },
	}

	combined := observability.Combine(first, second)
	assert.Nil(t, combined.OnToolCall, "no hook, no fan-out")

	tools := testutils.NewRegistry(t, map[string]registry.Tool{"a": testutils.Noop()})
	runtime.NewEngine(tools, runtime.WithLifecycleHooks(combined)).
		Execute(context.Background(), testutils.Chain("a"), nil, 5)

	assert.Equal(t, []string{"first:a", "second:a", "finish"}, order)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tools := testutils.NewRegistry(t, map[string]registry.Tool{"fail": testutils.Fail()})
	runtime.NewEngine(tools, runtime.WithLifecycleHooks(observability.LoggingHooks(logger))).
		Execute(context.Background(), testutils.Chain("fail"), nil, 5)

	out := buf.String()
	assert.Contains(t, out, "node_enter")
	assert.Contains(t, out, "tool_error")
	assert.Contains(t, out, "level=WARN msg=run_finish")
	assert.Contains(t, out, "status=failed")
}
