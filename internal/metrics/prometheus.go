package metrics

import (
	"sync"

	"github.com/arloliu/streamgrid/types"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use so constructing a
// PrometheusCollector never panics on duplicate registration until it is exercised.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Connection metrics
	connState         prometheus.Gauge
	connTransitions   *prometheus.CounterVec
	reconnectAttempts prometheus.Counter
	reconnectBackoff  prometheus.Histogram

	// Queue metrics
	queueDepth        prometheus.Gauge
	supersededDropped prometheus.Counter
	batchesFlushed    *prometheus.CounterVec
	batchSize         prometheus.Histogram

	// Reconcile metrics
	diffRows        *prometheus.CounterVec
	applyDuration   prometheus.Histogram
	messagesDropped *prometheus.CounterVec

	// Adapter metrics
	surfaceTransactions prometheus.Counter
	surfaceOps          *prometheus.CounterVec
	exports             *prometheus.CounterVec
	exportedRows        prometheus.Counter
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "streamgrid" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "streamgrid"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.connState = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "connection",
			Name:      "state",
			Help:      "Current connection state (0=disconnected,1=connecting,2=connected,3=reconnecting,4=failed).",
		})
		p.connTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "connection",
			Name:      "transitions_total",
			Help:      "Total connection state transitions by target state.",
		}, []string{"to"})
		p.reconnectAttempts = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "connection",
			Name:      "reconnect_attempts_total",
			Help:      "Total scheduled reconnect attempts.",
		})
		p.reconnectBackoff = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "connection",
			Name:      "reconnect_backoff_seconds",
			Help:      "Backoff delays applied before reconnect attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		})

		p.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Messages pending in the current flush window.",
		})
		p.supersededDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "queue",
			Name:      "superseded_dropped_total",
			Help:      "Update messages dropped by overflow compaction (last-write-wins per key).",
		})
		p.batchesFlushed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "queue",
			Name:      "batches_flushed_total",
			Help:      "Batches emitted by flush trigger (interval,size).",
		}, []string{"reason"})
		p.batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "queue",
			Name:      "batch_size",
			Help:      "Messages per emitted batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		})

		p.diffRows = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "reconcile",
			Name:      "diff_rows_total",
			Help:      "Rows in produced diffs by kind (added,updated,removed).",
		}, []string{"kind"})
		p.applyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "reconcile",
			Name:      "apply_duration_seconds",
			Help:      "Latency of one reconciliation apply.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		})
		p.messagesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "reconcile",
			Name:      "messages_dropped_total",
			Help:      "Messages absorbed by per-message failures by reason (parse,merge).",
		}, []string{"reason"})

		p.surfaceTransactions = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "grid",
			Name:      "surface_transactions_total",
			Help:      "Rendering-surface transactions issued.",
		})
		p.surfaceOps = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "grid",
			Name:      "surface_rows_total",
			Help:      "Rows sent to the rendering surface by operation (add,update,remove).",
		}, []string{"op"})
		p.exports = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "grid",
			Name:      "exports_total",
			Help:      "Export attempts by scope and result.",
		}, []string{"scope", "result"})
		p.exportedRows = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "grid",
			Name:      "exported_rows_total",
			Help:      "Rows written by successful exports.",
		})

		p.reg.MustRegister(
			p.connState, p.connTransitions, p.reconnectAttempts, p.reconnectBackoff,
			p.queueDepth, p.supersededDropped, p.batchesFlushed, p.batchSize,
			p.diffRows, p.applyDuration, p.messagesDropped,
			p.surfaceTransactions, p.surfaceOps, p.exports, p.exportedRows,
		)
	})
}

// RecordConnectionState records a state transition.
func (p *PrometheusCollector) RecordConnectionState(_ types.ConnectionState, to types.ConnectionState) {
	p.ensureRegistered()
	p.connState.Set(float64(to))
	p.connTransitions.WithLabelValues(to.String()).Inc()
}

// RecordReconnectAttempt records a scheduled reconnect and its backoff.
func (p *PrometheusCollector) RecordReconnectAttempt(_ int, delay float64) {
	p.ensureRegistered()
	p.reconnectAttempts.Inc()
	p.reconnectBackoff.Observe(delay)
}

// RecordQueueDepth sets the pending message gauge.
func (p *PrometheusCollector) RecordQueueDepth(depth int) {
	p.ensureRegistered()
	p.queueDepth.Set(float64(depth))
}

// RecordSupersededDropped adds compaction drops.
func (p *PrometheusCollector) RecordSupersededDropped(count int) {
	p.ensureRegistered()
	p.supersededDropped.Add(float64(count))
}

// RecordBatchFlushed records an emitted batch.
func (p *PrometheusCollector) RecordBatchFlushed(size int, reason string) {
	p.ensureRegistered()
	p.batchesFlushed.WithLabelValues(reason).Inc()
	p.batchSize.Observe(float64(size))
}

// RecordDiff records the rows of a produced diff.
func (p *PrometheusCollector) RecordDiff(added, updated, removed int) {
	p.ensureRegistered()
	p.diffRows.WithLabelValues("added").Add(float64(added))
	p.diffRows.WithLabelValues("updated").Add(float64(updated))
	p.diffRows.WithLabelValues("removed").Add(float64(removed))
}

// RecordApplyDuration observes apply latency.
func (p *PrometheusCollector) RecordApplyDuration(duration float64) {
	p.ensureRegistered()
	p.applyDuration.Observe(duration)
}

// RecordMessageDropped increments the diagnostic drop counter.
func (p *PrometheusCollector) RecordMessageDropped(reason string) {
	p.ensureRegistered()
	p.messagesDropped.WithLabelValues(reason).Inc()
}

// RecordSurfaceTransaction records one surface transaction.
func (p *PrometheusCollector) RecordSurfaceTransaction(added, updated, removed int) {
	p.ensureRegistered()
	p.surfaceTransactions.Inc()
	p.surfaceOps.WithLabelValues("add").Add(float64(added))
	p.surfaceOps.WithLabelValues("update").Add(float64(updated))
	p.surfaceOps.WithLabelValues("remove").Add(float64(removed))
}

// RecordExport records an export outcome.
func (p *PrometheusCollector) RecordExport(scope string, rows int, success bool) {
	p.ensureRegistered()
	result := "success"
	if !success {
		result = "failure"
	}
	p.exports.WithLabelValues(scope, result).Inc()
	if success {
		p.exportedRows.Add(float64(rows))
	}
}
