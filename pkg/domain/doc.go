/*
Package domain contains the core domain models of the stepgraph engine.

It defines the entities of a workflow graph and of its executions. This package
is kept pure and free of I/O and persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Graph / Node: the declarative, read-only workflow definition.
  - State: the key-value store a run threads through its nodes.
  - Run / StepEntry: the record of one execution and its append-only log.
  - LifecycleHooks: observability callbacks invoked by the engine.
*/
package domain
