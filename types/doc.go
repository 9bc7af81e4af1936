// Package types provides the shared data model and interfaces for the streamgrid library.
//
// Types live in their own package so the pipeline packages (transport, subscription,
// queue, reconcile, grid) can depend on them without importing the root streamgrid
// package, which would create import cycles.
//
// Key types:
//   - Key, Row: a keyed record held by the canonical table
//   - UpdateMessage, Batch: decoded inbound updates and one flush window of them
//   - Diff: the add/update/remove delta produced by one reconciliation cycle
//   - ConnectionState: transport lifecycle state
//   - Logger, MetricsCollector, Hooks: ambient collaborators
package types
