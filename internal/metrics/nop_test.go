package metrics

import (
	"testing"

	"github.com/arloliu/streamgrid/types"
	"github.com/stretchr/testify/require"
)

func TestNewNop(t *testing.T) {
	metrics := NewNop()

	require.NotNil(t, metrics)
	require.IsType(t, &NopMetrics{}, metrics)
}

func TestNopMetrics_AcceptsAnyInput(t *testing.T) {
	metrics := NewNop()

	require.NotPanics(t, func() {
		metrics.RecordConnectionState(types.StateConnecting, types.StateConnected)
		metrics.RecordConnectionState(types.ConnectionState(99), types.ConnectionState(-1))
		metrics.RecordReconnectAttempt(1, 0.1)
		metrics.RecordQueueDepth(0)
		metrics.RecordSupersededDropped(-1)
		metrics.RecordBatchFlushed(10, "interval")
		metrics.RecordDiff(1, 2, 3)
		metrics.RecordApplyDuration(0.001)
		metrics.RecordMessageDropped("parse")
		metrics.RecordSurfaceTransaction(0, 0, 0)
		metrics.RecordExport("all", 5, true)
	})
}
