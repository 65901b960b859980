/*
Package ports defines the driven ports (interfaces) for the stepgraph engine.

These interfaces decouple the core logic from external implementations, allowing
the service to work with various storage backends.

# Key Interfaces

  - GraphStore: persists validated graph definitions.
  - RunStore: persists run records (status, state and step log).

The contract suites in this package (RunGraphStoreContract, RunRunStoreContract)
are shared by every adapter's tests.
*/
package ports
