// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/arloliu/streamgrid/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. It is the default when no collector is injected.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// ConnectionMetrics implementation

// RecordConnectionState discards the state transition metric.
func (n *NopMetrics) RecordConnectionState(_ /* from */, _ /* to */ types.ConnectionState) {}

// RecordReconnectAttempt discards the reconnect metric.
func (n *NopMetrics) RecordReconnectAttempt(_ /* attempt */ int, _ /* delay */ float64) {}

// QueueMetrics implementation

// RecordQueueDepth discards the queue depth metric.
func (n *NopMetrics) RecordQueueDepth(_ /* depth */ int) {}

// RecordSupersededDropped discards the compaction metric.
func (n *NopMetrics) RecordSupersededDropped(_ /* count */ int) {}

// RecordBatchFlushed discards the flush metric.
func (n *NopMetrics) RecordBatchFlushed(_ /* size */ int, _ /* reason */ string) {}

// ReconcileMetrics implementation

// RecordDiff discards the diff size metric.
func (n *NopMetrics) RecordDiff(_ /* added */, _ /* updated */, _ /* removed */ int) {}

// RecordApplyDuration discards the apply latency metric.
func (n *NopMetrics) RecordApplyDuration(_ /* duration */ float64) {}

// RecordMessageDropped discards the dropped message metric.
func (n *NopMetrics) RecordMessageDropped(_ /* reason */ string) {}

// AdapterMetrics implementation

// RecordSurfaceTransaction discards the surface transaction metric.
func (n *NopMetrics) RecordSurfaceTransaction(_ /* added */, _ /* updated */, _ /* removed */ int) {}

// RecordExport discards the export metric.
func (n *NopMetrics) RecordExport(_ /* scope */ string, _ /* rows */ int, _ /* success */ bool) {}
