package streamgrid

import "github.com/juju/clock"

// Option configures a Controller.
type Option func(*controllerOptions)

type controllerOptions struct {
	hooks   *Hooks
	metrics MetricsCollector
	logger  Logger
	clock   clock.Clock
}

// WithHooks sets lifecycle callbacks.
//
// Parameters:
//   - hooks: Callback functions; nil fields are replaced by no-ops
//
// Example:
//
//	hooks := &streamgrid.Hooks{
//	    OnError: func(ctx context.Context, err error) error {
//	        log.Printf("dropped message: %v", err)
//	        return nil
//	    },
//	}
//	ctrl, err := streamgrid.NewController(&cfg, factory, surface, streamgrid.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *controllerOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets the metrics collector.
//
// Example:
//
//	ctrl, err := streamgrid.NewController(&cfg, factory, surface,
//	    streamgrid.WithMetrics(streamgrid.NewPrometheusMetrics(nil, "")))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *controllerOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets the logger.
//
// Example:
//
//	logger := zap.NewExample().Sugar()
//	ctrl, err := streamgrid.NewController(&cfg, factory, surface, streamgrid.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *controllerOptions) {
		o.logger = logger
	}
}

// WithClock sets the clock driving reconnect backoff and flush windows. Tests use
// it to run both without real sleeps.
func WithClock(clk clock.Clock) Option {
	return func(o *controllerOptions) {
		o.clock = clk
	}
}
