// Package reconcile merges update batches into the canonical table.
//
// Table is the in-memory row set, keyed by row key. Reconciler.Apply is its only
// writer: it applies one batch under the table's write lock and returns the minimal
// Diff. Readers never observe a partially applied batch.
//
// Merge rules for one batch:
//
//   - messages are grouped per key and only the last one is kept
//   - a removal anywhere in the batch wins over updates for the same key
//   - an update of an absent key creates the row, of a present key overwrites the
//     given fields (shallow; nested values are replaced, never merged)
//   - an update that changes nothing is not reported
package reconcile
