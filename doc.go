/*
Package stepgraph executes declaratively defined graphs of steps over a shared state.

A graph is a list of named nodes. Every node runs one tool from a registry and
then moves on, either unconditionally or by reading a boolean key from the
state. Back edges and self edges form loops, bounded by a per-run step budget.

# Concept

Tools receive a copy of the state and return a fragment that is merged into it,
key by key. The engine records one log entry per executed node, with a snapshot
of the state after the merge, so a run can be inspected after the fact.
Execution problems never surface as Go errors from Run: a failed tool, a
missing condition key or an exhausted budget end the run with a terminal
status (failed, step_limit_exceeded) and an error message in the record.

# Usage

	reg := registry.New()
	reg.MustRegister("count", registry.ToolFunc(func(ctx context.Context, s domain.State) (domain.State, error) {
		n, _ := s["n"].(int)
		return domain.State{"n": n + 1, "done": n+1 >= 3}, nil
	}))

	eng := stepgraph.New(stepgraph.WithRegistry(reg))

	b := dsl.New("counter")
	b.Add("count").Loop("done", "")
	g, _ := b.Build()

	id, err := eng.CreateGraph(ctx, g)
	if err != nil {
		log.Fatal(err) // *domain.GraphValidationError lists every problem
	}

	run, err := eng.Run(ctx, id, domain.State{"n": 0}, 10)
	fmt.Println(run.Status, run.State["n"]) // completed 3

Stores (memory, file, Redis, SQLite), run store middleware (encryption, PII
masking), Prometheus metrics and the HTTP and MCP adapters live under pkg/.
*/
package stepgraph
