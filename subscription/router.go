package subscription

import (
	"context"
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/arloliu/streamgrid/internal/logging"
	"github.com/arloliu/streamgrid/internal/metrics"
	"github.com/arloliu/streamgrid/types"
	"github.com/puzpuzpuz/xsync/v4"
)

const defaultSubscriptionBuffer = 256

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger types.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector. Defaults to a no-op collector.
func WithMetrics(m types.MetricsCollector) Option {
	return func(r *Router) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithErrorHandler registers a callback for frames that fail to decode.
// It is called on the router goroutine.
func WithErrorHandler(fn func(err error)) Option {
	return func(r *Router) {
		r.onError = fn
	}
}

// WithBuffer sets the per-subscription buffer size.
func WithBuffer(size int) Option {
	return func(r *Router) {
		if size > 0 {
			r.buffer = size
		}
	}
}

// Router decodes raw frames and delivers them to matching subscriptions.
//
// Delivery to a subscription blocks when its buffer is full, which in turn stops
// the router from reading the transport.
type Router struct {
	subs    *xsync.Map[uint64, *Subscription]
	nextID  atomic.Uint64
	logger  types.Logger
	metrics types.MetricsCollector
	onError func(err error)
	buffer  int
	parsed  atomic.Int64
	dropped atomic.Int64
}

// NewRouter creates a router with no subscriptions.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		subs:    xsync.NewMap[uint64, *Subscription](),
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
		buffer:  defaultSubscriptionBuffer,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Subscribe returns a sequence of updates whose topic matches any of the patterns.
//
// Non-matching updates are dropped silently. With no patterns the subscription
// receives every update.
//
// Example:
//
//	sub := router.Subscribe("positions.*", "orders.>")
//	defer sub.Close()
//	for msg := range sub.All(ctx) {
//	    queue.Push(msg)
//	}
func (r *Router) Subscribe(patterns ...string) *Subscription {
	if len(patterns) == 0 {
		patterns = []string{">"}
	}

	s := &Subscription{
		id:       r.nextID.Add(1),
		patterns: slices.Clone(patterns),
		ch:       make(chan types.UpdateMessage, r.buffer),
		closed:   make(chan struct{}),
		router:   r,
	}
	r.subs.Store(s.id, s)

	return s
}

// Run reads frames from in until ctx is canceled.
//
// Returns:
//   - error: ctx.Err() once the context ends
func (r *Router) Run(ctx context.Context, in <-chan types.RawMessage) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw := <-in:
			r.dispatch(ctx, raw)
		}
	}
}

// Stats returns the number of decoded and rejected frames.
func (r *Router) Stats() (parsed, dropped int64) {
	return r.parsed.Load(), r.dropped.Load()
}

func (r *Router) dispatch(ctx context.Context, raw types.RawMessage) {
	msg, err := Decode(raw)
	if err != nil {
		r.dropped.Add(1)
		r.metrics.RecordMessageDropped("parse")
		r.logger.Warn("dropping malformed message", "subject", raw.Subject, "error", err)
		if r.onError != nil {
			r.onError(err)
		}

		return
	}
	r.parsed.Add(1)

	r.subs.Range(func(_ uint64, s *Subscription) bool {
		if !s.matches(msg.Topic) {
			return true
		}
		select {
		case s.ch <- msg:
		case <-s.closed:
		case <-ctx.Done():
			return false
		}

		return true
	})
}

// Subscription is a lazy sequence of updates for a set of topic patterns.
type Subscription struct {
	id       uint64
	patterns []string
	ch       chan types.UpdateMessage
	closed   chan struct{}
	once     sync.Once
	router   *Router
}

// Patterns returns the topic patterns of the subscription.
func (s *Subscription) Patterns() []string {
	return slices.Clone(s.patterns)
}

func (s *Subscription) matches(topic string) bool {
	for _, p := range s.patterns {
		if Match(p, topic) {
			return true
		}
	}

	return false
}

// Next blocks until the next matching update arrives.
//
// Returns:
//   - types.UpdateMessage: The update
//   - error: types.ErrClosed after Close, or ctx.Err()
func (s *Subscription) Next(ctx context.Context) (types.UpdateMessage, error) {
	// buffered updates are still delivered before ctx is honored
	select {
	case msg := <-s.ch:
		return msg, nil
	default:
	}

	select {
	case msg := <-s.ch:
		return msg, nil
	case <-s.closed:
		return types.UpdateMessage{}, types.ErrClosed
	case <-ctx.Done():
		return types.UpdateMessage{}, ctx.Err()
	}
}

// All returns an iterator over updates that ends when ctx is canceled or the
// subscription is closed.
func (s *Subscription) All(ctx context.Context) iter.Seq[types.UpdateMessage] {
	return func(yield func(types.UpdateMessage) bool) {
		for {
			msg, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(msg) {
				return
			}
		}
	}
}

// Close detaches the subscription from the router. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.router.subs.Delete(s.id)
		close(s.closed)
	})
}
