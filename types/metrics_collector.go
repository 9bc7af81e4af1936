package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, per-stage interfaces so each pipeline package
// depends only on the metrics it records.
type MetricsCollector interface {
	ConnectionMetrics
	QueueMetrics
	ReconcileMetrics
	AdapterMetrics
}

// ConnectionMetrics defines metrics for the transport connection.
type ConnectionMetrics interface {
	// RecordConnectionState records a state transition.
	RecordConnectionState(from, to ConnectionState)

	// RecordReconnectAttempt records a scheduled reconnect.
	//
	// Parameters:
	//   - attempt: 1-based reconnect attempt number
	//   - delay: Backoff delay in seconds
	RecordReconnectAttempt(attempt int, delay float64)
}

// QueueMetrics defines metrics for the update queue.
type QueueMetrics interface {
	// RecordQueueDepth sets the current number of pending messages (gauge metric).
	RecordQueueDepth(depth int)

	// RecordSupersededDropped records update messages dropped by overflow compaction.
	RecordSupersededDropped(count int)

	// RecordBatchFlushed records an emitted batch.
	//
	// Parameters:
	//   - size: Number of messages in the batch
	//   - reason: Flush trigger ("interval" or "size")
	RecordBatchFlushed(size int, reason string)
}

// ReconcileMetrics defines metrics for the reconciler and message decoding.
type ReconcileMetrics interface {
	// RecordDiff records the size of a produced diff.
	RecordDiff(added, updated, removed int)

	// RecordApplyDuration records the time taken by one apply, in seconds.
	RecordApplyDuration(duration float64)

	// RecordMessageDropped records a message absorbed by a per-message failure.
	//
	// Parameters:
	//   - reason: "parse" or "merge"
	RecordMessageDropped(reason string)
}

// AdapterMetrics defines metrics for the table adapter.
type AdapterMetrics interface {
	// RecordSurfaceTransaction records one rendering-surface transaction.
	RecordSurfaceTransaction(added, updated, removed int)

	// RecordExport records an export attempt.
	RecordExport(scope string, rows int, success bool)
}
