package transport

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/arloliu/streamgrid/internal/logging"
	"github.com/arloliu/streamgrid/internal/metrics"
	"github.com/arloliu/streamgrid/types"
	"github.com/juju/clock"
	"github.com/puzpuzpuz/xsync/v4"
)

const defaultMessageBuffer = 256

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger types.Logger) Option {
	return func(c *Connection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector. Defaults to a no-op collector.
func WithMetrics(m types.MetricsCollector) Option {
	return func(c *Connection) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithClock sets the clock used for backoff timers. Defaults to clock.WallClock.
func WithClock(clk clock.Clock) Option {
	return func(c *Connection) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithMessageBuffer sets the capacity of the inbound frame channel.
func WithMessageBuffer(size int) Option {
	return func(c *Connection) {
		if size > 0 {
			c.bufferSize = size
		}
	}
}

// Connection manages one physical connection to the stream source.
//
// A Connection is reusable: after Disconnect or Failed, Connect starts a new
// session with a fresh attempt counter and a fresh Messages channel.
type Connection struct {
	factory    types.ConnectionFactory
	cfg        Config
	logger     types.Logger
	metrics    types.MetricsCollector
	clock      clock.Clock
	bufferSize int

	state     atomic.Int32
	listeners *xsync.Map[uint64, func(types.StateChange)]
	nextID    atomic.Uint64

	// notifyMu serializes transitions and listener calls so listeners observe
	// transitions in order.
	notifyMu sync.Mutex

	mu       sync.Mutex
	cancel   context.CancelFunc
	runCtx   context.Context //nolint:containedctx // session lifetime
	current  types.Conn
	messages chan types.RawMessage
	done     chan struct{}
}

// New creates a disconnected Connection.
//
// Parameters:
//   - factory: Establishes physical connections, one Dial per attempt
//   - cfg: Reconnect policy
//   - opts: Optional logger and metrics
//
// Returns:
//   - *Connection: Connection in the Disconnected state
//   - error: types.ErrFactoryRequired or a config validation error
//
// Example:
//
//	conn, err := transport.New(&transport.NATSFactory{URL: nats.DefaultURL, Subjects: []string{"prices.>"}},
//	    transport.Config{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second})
func New(factory types.ConnectionFactory, cfg Config, opts ...Option) (*Connection, error) {
	if factory == nil {
		return nil, types.ErrFactoryRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Connection{
		factory:    factory,
		cfg:        cfg,
		logger:     logging.NewNop(),
		metrics:    metrics.NewNop(),
		bufferSize: defaultMessageBuffer,
		clock:      clock.WallClock,
		listeners:  xsync.NewMap[uint64, func(types.StateChange)](),
		messages:   make(chan types.RawMessage),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Store(int32(types.StateDisconnected))

	return c, nil
}

// State returns the current connection state.
func (c *Connection) State() types.ConnectionState {
	return types.ConnectionState(c.state.Load())
}

// OnStateChange registers a listener for state transitions.
//
// Listeners are called synchronously, in transition order, from the goroutine that
// performed the transition. They must not call Connect or Disconnect directly.
//
// Returns:
//   - func(): Unregisters the listener
func (c *Connection) OnStateChange(cb func(types.StateChange)) func() {
	id := c.nextID.Add(1)
	c.listeners.Store(id, cb)

	return func() { c.listeners.Delete(id) }
}

// Messages returns the frame channel of the current session.
//
// The channel is replaced on each Connect and is never closed; readers should also
// select on their own cancellation.
func (c *Connection) Messages() <-chan types.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.messages
}

// Done returns a channel closed when the current session's retry loop exits, either
// after Disconnect or after reaching Failed.
func (c *Connection) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done == nil {
		ch := make(chan struct{})
		close(ch)

		return ch
	}

	return c.done
}

// Connect starts a connection session in the background.
//
// The session dials through the factory, reads frames into Messages, and reconnects
// with backoff on failure. The session ends on Disconnect, when ctx is canceled, or
// when reconnect attempts are exhausted (state Failed, with a fatal
// *types.ConnectionError attached to the transition).
//
// Returns:
//   - error: types.ErrAlreadyStarted if a session is active
func (c *Connection) Connect(ctx context.Context) error {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.cancel != nil && c.runCtx.Err() == nil && c.State() != types.StateFailed {
		c.mu.Unlock()

		return types.ErrAlreadyStarted
	}
	if c.cancel != nil {
		c.cancel()
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.runCtx = runCtx
	c.cancel = cancel
	c.messages = make(chan types.RawMessage, c.bufferSize)
	c.done = make(chan struct{})
	done := c.done
	messages := c.messages
	c.mu.Unlock()

	// a session ended by its parent context leaves a stale state behind
	if s := c.State(); s != types.StateDisconnected && s != types.StateFailed {
		c.applyLocked(s, types.StateDisconnected, nil)
	}
	c.applyLocked(c.State(), types.StateConnecting, nil)

	go c.run(runCtx, messages, done)

	return nil
}

// Disconnect ends the current session.
//
// The session context is canceled and the physical connection is closed. In-flight
// reads are not awaited; frames they produce afterwards are discarded.
// Calling Disconnect without an active session is a no-op.
func (c *Connection) Disconnect() {
	c.notifyMu.Lock()
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		c.notifyMu.Unlock()

		return
	}
	c.cancel()
	c.cancel = nil
	conn := c.current
	c.current = nil
	c.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Debug("close on disconnect failed", "error", err)
		}
	}

	from := c.State()
	if from != types.StateDisconnected {
		c.applyLocked(from, types.StateDisconnected, nil)
	}
	c.notifyMu.Unlock()
}

func (c *Connection) run(ctx context.Context, messages chan<- types.RawMessage, done chan struct{}) {
	defer close(done)

	bo := newBackoff(c.cfg)
	attempt := 0

	for {
		err := c.session(ctx, messages, &attempt)
		if ctx.Err() != nil {
			return
		}

		attempt++
		connErr := &types.ConnectionError{Attempt: attempt, Err: err}
		c.logger.Warn("connection attempt failed", "attempt", attempt, "error", err)
		c.transition(ctx, types.StateReconnecting, connErr)

		if attempt > c.cfg.MaxAttempts {
			fatal := &types.ConnectionError{Attempt: attempt, Fatal: true, Err: err}
			c.logger.Error("reconnect attempts exhausted", "attempts", attempt, "error", err)
			c.transition(ctx, types.StateFailed, fatal)

			return
		}

		delay := bo.delay(attempt)
		c.metrics.RecordReconnectAttempt(attempt, delay.Seconds())
		c.logger.Info("reconnecting", "attempt", attempt, "delay", delay)

		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(delay):
		}

		c.transition(ctx, types.StateConnecting, nil)
	}
}

// session dials once and reads until the connection breaks. A successful dial
// resets the attempt counter.
func (c *Connection) session(ctx context.Context, messages chan<- types.RawMessage, attempt *int) error {
	conn, err := c.factory.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()

		return ctx.Err()
	}
	c.current = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		owned := c.current == conn
		if owned {
			c.current = nil
		}
		c.mu.Unlock()
		if owned {
			_ = conn.Close()
		}
	}()

	*attempt = 0
	c.transition(ctx, types.StateConnected, nil)

	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return errors.Join(types.ErrConnectionLost, err)
		}
		if msg.ReceivedAt.IsZero() {
			msg.ReceivedAt = c.clock.Now()
		}

		select {
		case messages <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// transition moves to state `to` unless the session that requested it has ended.
func (c *Connection) transition(ctx context.Context, to types.ConnectionState, err error) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if ctx.Err() != nil {
		return
	}
	c.applyLocked(c.State(), to, err)
}

// applyLocked performs a validated transition. Caller holds notifyMu.
func (c *Connection) applyLocked(from, to types.ConnectionState, err error) {
	if !isValidTransition(from, to) {
		c.logger.Error("invalid connection state transition", "from", from.String(), "to", to.String())

		return
	}

	c.state.Store(int32(to)) //nolint:gosec // state values are a controlled enum
	c.metrics.RecordConnectionState(from, to)
	if err != nil {
		c.logger.Info("connection state changed", "from", from.String(), "to", to.String(), "error", err)
	} else {
		c.logger.Info("connection state changed", "from", from.String(), "to", to.String())
	}

	change := types.StateChange{From: from, To: to, Err: err}
	ids := make([]uint64, 0, c.listeners.Size())
	c.listeners.Range(func(id uint64, _ func(types.StateChange)) bool {
		ids = append(ids, id)
		return true
	})
	// registration order
	slices.Sort(ids)
	for _, id := range ids {
		if cb, ok := c.listeners.Load(id); ok {
			cb(change)
		}
	}
}

func isValidTransition(from, to types.ConnectionState) bool {
	validTransitions := map[types.ConnectionState][]types.ConnectionState{
		types.StateDisconnected: {types.StateConnecting},
		types.StateConnecting:   {types.StateConnected, types.StateReconnecting, types.StateDisconnected},
		types.StateConnected:    {types.StateReconnecting, types.StateDisconnected},
		types.StateReconnecting: {types.StateConnecting, types.StateFailed, types.StateDisconnected},
		types.StateFailed:       {types.StateConnecting, types.StateDisconnected},
	}

	return slices.Contains(validTransitions[from], to)
}
