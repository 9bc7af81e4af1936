package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/arloliu/streamgrid/internal/logging"
	"github.com/arloliu/streamgrid/internal/metrics"
	"github.com/arloliu/streamgrid/types"
)

// Flush reasons reported to metrics.
const (
	ReasonInterval = "interval"
	ReasonSize     = "size"
)

// Config controls batching.
type Config struct {
	// FlushInterval is the length of a flush window.
	FlushInterval time.Duration

	// MaxBatchSize flushes early once this many messages are pending. Zero disables
	// the size threshold.
	MaxBatchSize int

	// MaxQueueDepth is the pending depth above which superseded updates are dropped.
	MaxQueueDepth int
}

// Validate checks the batching configuration.
func (c Config) Validate() error {
	if c.FlushInterval <= 0 {
		return fmt.Errorf("%w: flushInterval must be > 0, got %v", types.ErrInvalidConfig, c.FlushInterval)
	}
	if c.MaxBatchSize < 0 {
		return fmt.Errorf("%w: maxBatchSize must be >= 0, got %d", types.ErrInvalidConfig, c.MaxBatchSize)
	}
	if c.MaxQueueDepth <= 0 {
		return fmt.Errorf("%w: maxQueueDepth must be > 0, got %d", types.ErrInvalidConfig, c.MaxQueueDepth)
	}

	return nil
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger types.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector. Defaults to a no-op collector.
func WithMetrics(m types.MetricsCollector) Option {
	return func(q *Queue) {
		if m != nil {
			q.metrics = m
		}
	}
}

// WithClock sets the clock driving the flush window. Defaults to clock.WallClock.
func WithClock(clk clock.Clock) Option {
	return func(q *Queue) {
		if clk != nil {
			q.clock = clk
		}
	}
}

// Queue buffers updates between flushes. Push is safe for concurrent use.
type Queue struct {
	cfg     Config
	logger  types.Logger
	metrics types.MetricsCollector
	clock   clock.Clock
	full    chan struct{}

	mu      sync.Mutex
	pending []types.UpdateMessage
	dropped []bool
	live    int
	// latest maps a key to the index of its newest pending message.
	latest map[types.Key]int
	// dupes counts pending updates that already have a newer message.
	dupes int
}

// New creates an empty queue.
//
// Returns:
//   - *Queue: Queue ready for Push and Run
//   - error: Config validation error
func New(cfg Config, opts ...Option) (*Queue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	q := &Queue{
		cfg:     cfg,
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
		clock:   clock.WallClock,
		full:    make(chan struct{}, 1),
		latest:  make(map[types.Key]int),
	}
	for _, opt := range opts {
		opt(q)
	}

	return q, nil
}

// Push appends a message to the current window.
func (q *Queue) Push(msg types.UpdateMessage) {
	q.mu.Lock()

	prev, hasPrev := q.latest[msg.Key]
	q.pending = append(q.pending, msg)
	q.dropped = append(q.dropped, false)
	q.latest[msg.Key] = len(q.pending) - 1
	q.live++

	createdDup := false
	if hasPrev && !q.dropped[prev] && !q.pending[prev].IsRemove() {
		q.dupes++
		createdDup = true
	}

	superseded := 0
	if q.live > q.cfg.MaxQueueDepth && q.dupes > 0 {
		if q.dupes == 1 && createdDup {
			q.dropped[prev] = true
			q.live--
			q.dupes = 0
			superseded = 1
		} else {
			superseded = q.compactLocked()
		}
	}
	depth := q.live
	signal := q.cfg.MaxBatchSize > 0 && depth >= q.cfg.MaxBatchSize
	q.mu.Unlock()

	q.metrics.RecordQueueDepth(depth)
	if superseded > 0 {
		q.metrics.RecordSupersededDropped(superseded)
		q.logger.Debug("dropped superseded updates", "count", superseded, "depth", depth)
	}
	if signal {
		select {
		case q.full <- struct{}{}:
		default:
		}
	}
}

// compactLocked drops every update that has a newer pending message for its key.
func (q *Queue) compactLocked() int {
	seen := make(map[types.Key]struct{}, len(q.latest))
	keep := make([]bool, len(q.pending))
	for i := len(q.pending) - 1; i >= 0; i-- {
		if q.dropped[i] {
			continue
		}
		msg := q.pending[i]
		_, newer := seen[msg.Key]
		seen[msg.Key] = struct{}{}
		if newer && !msg.IsRemove() {
			continue
		}
		keep[i] = true
	}

	kept := q.pending[:0:0]
	for i, msg := range q.pending {
		if keep[i] {
			kept = append(kept, msg)
		}
	}

	removed := q.live - len(kept)
	q.pending = kept
	q.dropped = make([]bool, len(kept))
	q.live = len(kept)
	q.dupes = 0
	clear(q.latest)
	for i, msg := range kept {
		q.latest[msg.Key] = i
	}

	return removed
}

// Len returns the number of pending messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.live
}

// Drain removes and returns all pending messages in arrival order.
//
// Returns:
//   - types.Batch: Pending messages, or nil when the window is empty
func (q *Queue) Drain() types.Batch {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.live == 0 {
		q.resetLocked()
		return nil
	}

	batch := make(types.Batch, 0, q.live)
	for i, msg := range q.pending {
		if !q.dropped[i] {
			batch = append(batch, msg)
		}
	}
	q.resetLocked()

	return batch
}

// Reset discards all pending messages.
func (q *Queue) Reset() {
	q.mu.Lock()
	q.resetLocked()
	q.mu.Unlock()

	// clear a pending size signal
	select {
	case <-q.full:
	default:
	}
	q.metrics.RecordQueueDepth(0)
}

func (q *Queue) resetLocked() {
	q.pending = nil
	q.dropped = nil
	q.live = 0
	q.dupes = 0
	clear(q.latest)
}

// Run emits batches to sink until ctx is canceled.
//
// sink is called on the Run goroutine, one call per non-empty window. Messages still
// pending when ctx ends are left in the queue; call Reset to discard them.
//
// Returns:
//   - error: ctx.Err() once the context ends
func (q *Queue) Run(ctx context.Context, sink func(types.Batch)) error {
	timer := q.clock.NewTimer(q.cfg.FlushInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.Chan():
			q.flush(ctx, sink, ReasonInterval)
			timer.Reset(q.cfg.FlushInterval)
		case <-q.full:
			q.flush(ctx, sink, ReasonSize)
			timer.Stop()
			timer.Reset(q.cfg.FlushInterval)
		}
	}
}

func (q *Queue) flush(ctx context.Context, sink func(types.Batch), reason string) {
	// a cancel racing with the timer wins
	if ctx.Err() != nil {
		return
	}

	batch := q.Drain()
	q.metrics.RecordQueueDepth(q.Len())
	if len(batch) == 0 {
		return
	}

	q.metrics.RecordBatchFlushed(len(batch), reason)
	sink(batch)
}
