/*
Package observability provides tools for monitoring the stepgraph engine.

Everything here is expressed as domain.LifecycleHooks: Prometheus metrics
(Metrics), structured logging (LoggingHooks) and Combine to attach several
observers to one engine.
*/
package observability
