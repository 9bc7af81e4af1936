// Package queue batches decoded updates into flush windows.
//
// Messages pushed into a Queue are emitted as one Batch per flush, on a fixed
// interval or as soon as the size threshold is reached, whichever comes first.
// Every pushed message appears in exactly one batch, in arrival order, and an empty
// window emits nothing.
//
// When the pending depth exceeds MaxQueueDepth the queue compacts: an update is
// dropped when a newer message for the same key is already pending. Removals are
// never dropped. This is a lossy optimization that matches the last-write-wins
// merge applied to each batch anyway.
package queue
