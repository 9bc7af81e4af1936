package streamgrid

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/streamgrid/internal/metrics"
)

// NewPrometheusMetrics creates a MetricsCollector that records pipeline metrics in
// Prometheus.
//
// Parameters:
//   - reg: Registerer for the collectors (prometheus.DefaultRegisterer if nil)
//   - namespace: Metric namespace ("streamgrid" if empty)
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	ctrl, err := streamgrid.NewController(&cfg, factory, surface,
//	    streamgrid.WithMetrics(streamgrid.NewPrometheusMetrics(reg, "")))
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}
