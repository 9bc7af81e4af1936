// Package streamgrid keeps a visual data grid in sync with a live stream of
// keyed row updates.
//
// Messages arrive over a persistent connection (NATS subjects, a JetStream KV
// bucket or a WebSocket), are decoded and routed by topic, buffered into flush
// windows, reconciled against a canonical table, and applied to the grid as one
// minimal transaction per window. The grid never sees intermediate states.
//
// # Quick Start
//
//	cfg := streamgrid.DefaultConfig()
//	cfg.Topics = []string{"positions.>"}
//
//	factory := &transport.NATSFactory{URL: nats.DefaultURL, Subjects: cfg.Topics}
//	ctrl, err := streamgrid.NewController(&cfg, factory, surface)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := ctrl.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer ctrl.Stop(context.Background())
//
// # Pipeline
//
//	transport → subscription → queue → reconcile → grid → Surface
//
//   - transport: Connection lifecycle with exponential backoff reconnects
//   - subscription: Frame decoding and NATS-style topic pattern routing
//   - queue: Windowed batching with bounded depth
//   - reconcile: Canonical table and batch-to-diff reconciliation
//   - grid: Surface transactions, filtering, selection and CSV export
//
// # Guarantees
//
// Within one flush window the last message for a key determines its state, and a
// remove anywhere in the window wins. A diff never lists the same key in more than
// one category. Applying a window that changes nothing produces no surface call.
// After Stop returns, the surface receives no further calls.
//
// # Connection States
//
//	Disconnected → Connecting → Connected
//	Connected → Reconnecting → Connecting → Connected
//	Reconnecting → Failed (attempts exhausted; reported on Controller.Fatal)
//
// # Observability
//
// Pass WithLogger for structured logs, WithMetrics (see NewPrometheusMetrics) for
// Prometheus metrics and WithHooks for lifecycle callbacks.
package streamgrid
