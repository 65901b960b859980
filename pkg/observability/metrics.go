package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by engine lifecycle events.
type Metrics struct {
	NodeVisits   *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	ToolErrors   *prometheus.CounterVec
	Runs         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepgraph_node_visits_total",
				Help: "Total number of node executions.",
			},
			[]string{"node"},
		),
		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stepgraph_tool_duration_seconds",
				Help:    "Duration of tool executions.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		ToolErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepgraph_tool_errors_total",
				Help: "Total number of failed tool executions.",
			},
			[]string{"tool"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepgraph_runs_total",
				Help: "Total number of finished runs by terminal status.",
			},
			[]string{"status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.NodeVisits, m.ToolDuration, m.ToolErrors, m.Runs)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.Node).Inc()
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			m.ToolDuration.WithLabelValues(e.Tool).Observe(e.Duration.Seconds())
			if e.IsError() {
				m.ToolErrors.WithLabelValues(e.Tool).Inc()
			}
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			m.Runs.WithLabelValues(string(e.Status)).Inc()
		},
	}
}
