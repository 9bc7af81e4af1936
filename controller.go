package streamgrid

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/streamgrid/grid"
	"github.com/arloliu/streamgrid/internal/hooks"
	"github.com/arloliu/streamgrid/internal/logging"
	"github.com/arloliu/streamgrid/internal/metrics"
	"github.com/arloliu/streamgrid/queue"
	"github.com/arloliu/streamgrid/reconcile"
	"github.com/arloliu/streamgrid/subscription"
	"github.com/arloliu/streamgrid/transport"
	"github.com/arloliu/streamgrid/types"
)

// Controller wires the pipeline together:
//
//	transport.Connection → subscription.Router → queue.Queue → reconcile.Reconciler → grid.Adapter
//
// The canonical table and the adapter outlive Start/Stop cycles; each Start creates
// a new session with its own queue and subscription. Per-message failures are
// absorbed and reported through Hooks.OnError; a connection that exhausts its
// reconnect attempts ends the session and is reported on Fatal.
type Controller struct {
	cfg     Config
	logger  Logger
	metrics MetricsCollector
	hooks   types.Hooks
	clock   clock.Clock

	table      *reconcile.Table
	reconciler *reconcile.Reconciler
	adapter    *grid.Adapter
	conn       *transport.Connection

	diffListeners *xsync.Map[uint64, func(Diff)]
	nextID        atomic.Uint64

	parseDrops atomic.Int64
	mergeDrops atomic.Int64
	flushes    atomic.Int64

	fatal chan error

	// hookMu guards the ordered state hook backlog.
	hookMu      sync.Mutex
	hookBacklog []StateChange
	hookRunning bool

	// lifeMu serializes Start and Stop; mu guards session and draining.
	lifeMu  sync.Mutex
	mu      sync.Mutex
	session *session
	// draining holds a failed session whose goroutines may still touch the surface.
	draining *session
}

// session is the state of one Start/Stop cycle.
type session struct {
	id     string
	cancel context.CancelFunc
	wg     sync.WaitGroup
	queue  *queue.Queue
	router *subscription.Router
	sub    *subscription.Subscription

	unsubscribe func()
	stopOnce    sync.Once
	stopped     chan struct{}
}

// Diagnostics is a point-in-time view of pipeline counters.
type Diagnostics struct {
	SessionID     string
	State         ConnectionState
	TableVersion  uint64
	Rows          int
	QueueDepth    int
	Parsed        int64
	Flushes       int64
	ParseDropped  int64
	MergeDropped  int64
	VisibleRows   int
	SelectedRows  int
	FilterActive  bool
	ColumnsActive int
}

// NewController creates a stopped Controller.
//
// Parameters:
//   - cfg: Configuration; defaults are applied in place before validation
//   - factory: Establishes physical connections to the stream source
//   - surface: Rendering surface; a TransactionalSurface gets one transaction per flush
//   - opts: Optional hooks, metrics, logger and clock
//
// Returns:
//   - *Controller: Controller ready for Start
//   - error: ErrInvalidConfig, ErrFactoryRequired or ErrSurfaceRequired
//
// Example:
//
//	cfg := streamgrid.DefaultConfig()
//	cfg.Topics = []string{"positions.>"}
//	factory := &transport.NATSFactory{URL: nats.DefaultURL, Subjects: cfg.Topics}
//	ctrl, err := streamgrid.NewController(&cfg, factory, grid)
//	if err != nil {
//	    return err
//	}
//	if err := ctrl.Start(ctx); err != nil {
//	    return err
//	}
//	defer ctrl.Stop(context.Background())
func NewController(cfg *Config, factory ConnectionFactory, surface Surface, opts ...Option) (*Controller, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if factory == nil {
		return nil, ErrFactoryRequired
	}
	if surface == nil {
		return nil, ErrSurfaceRequired
	}

	SetDefaults(cfg)

	options := &controllerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	if err := cfg.ValidateWithWarnings(loggerInstance); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Controller{
		cfg:           *cfg,
		logger:        loggerInstance,
		metrics:       metricsCollector,
		hooks:         hooks.Fill(options.hooks),
		clock:         options.clock,
		table:         reconcile.NewTable(),
		diffListeners: xsync.NewMap[uint64, func(Diff)](),
		fatal:         make(chan error, 1),
	}

	c.reconciler = reconcile.NewReconciler(
		reconcile.WithLogger(loggerInstance),
		reconcile.WithMetrics(metricsCollector),
		reconcile.WithErrorHandler(c.onMergeError),
	)

	adapter, err := grid.NewAdapter(c.table, surface,
		grid.WithLogger(loggerInstance),
		grid.WithMetrics(metricsCollector),
		grid.WithColumns(cfg.Columns...),
	)
	if err != nil {
		return nil, err
	}
	c.adapter = adapter

	connOpts := []transport.Option{
		transport.WithLogger(loggerInstance),
		transport.WithMetrics(metricsCollector),
	}
	if c.clock != nil {
		connOpts = append(connOpts, transport.WithClock(c.clock))
	}
	conn, err := transport.New(factory, cfg.Reconnect, connOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	conn.OnStateChange(c.forwardState)

	return c, nil
}

// Start connects to the stream source and starts the pipeline.
//
// Start does not wait for the connection to be established; observe State or
// OnStateChange for progress. A Controller whose previous session reached Failed
// can be started again.
//
// Returns:
//   - error: ErrAlreadyStarted if a session is running
func (c *Controller) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.mu.Lock()
	prev := c.session
	if prev != nil && c.conn.State() != StateFailed {
		c.mu.Unlock()

		return ErrAlreadyStarted
	}
	c.session = nil
	c.mu.Unlock()

	// a failed session must be gone before a new one writes to the table
	if err := c.drain(ctx, prev); err != nil {
		return err
	}

	queueOpts := []queue.Option{queue.WithLogger(c.logger), queue.WithMetrics(c.metrics)}
	if c.clock != nil {
		queueOpts = append(queueOpts, queue.WithClock(c.clock))
	}
	q, err := queue.New(c.cfg.queueConfig(), queueOpts...)
	if err != nil {
		return err
	}

	router := subscription.NewRouter(
		subscription.WithLogger(c.logger),
		subscription.WithMetrics(c.metrics),
		subscription.WithErrorHandler(c.onParseError),
	)

	// the session outlives Start's context; Stop ends it
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess := &session{
		id:     uuid.NewString(),
		cancel: cancel,
		queue:  q,
		router: router,
		sub:    router.Subscribe(c.cfg.Topics...),

		stopped: make(chan struct{}),
	}
	sess.unsubscribe = c.conn.OnStateChange(func(change StateChange) {
		c.onStateChange(sess, change)
	})

	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	// a fast failure may tear the session down before the goroutines start
	sess.wg.Add(3)
	if err := c.conn.Connect(sessCtx); err != nil {
		sess.wg.Add(-3)
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		sess.unsubscribe()
		sess.sub.Close()
		cancel()

		return err
	}

	messages := c.conn.Messages()

	go func() {
		defer sess.wg.Done()
		_ = router.Run(sessCtx, messages)
	}()
	go func() {
		defer sess.wg.Done()
		for msg := range sess.sub.All(sessCtx) {
			q.Push(msg)
		}
	}()
	go func() {
		defer sess.wg.Done()
		_ = q.Run(sessCtx, func(batch Batch) {
			c.flush(sessCtx, batch)
		})
	}()

	c.logger.Info("controller started", "session_id", sess.id, "topics", c.cfg.Topics)

	return nil
}

// Stop disconnects from the stream source and stops the pipeline.
//
// When Stop returns nil no further rendering-surface calls are made. Pending
// messages are discarded; the table keeps its rows. Safe to call multiple times.
//
// Parameters:
//   - ctx: Bounds the wait for pipeline goroutines. Without a deadline,
//     Config.ShutdownTimeout applies.
//
// Returns:
//   - error: Context error if the pipeline did not stop in time
func (c *Controller) Stop(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.mu.Unlock()

	c.conn.Disconnect()

	if err := c.drain(ctx, sess); err != nil {
		return err
	}
	if sess != nil {
		c.logger.Info("controller stopped", "session_id", sess.id)
	}

	return nil
}

// drain shuts down sess (may be nil) and waits for a session still being torn
// down after a connection failure.
func (c *Controller) drain(ctx context.Context, sess *session) error {
	if sess != nil {
		if err := c.shutdown(ctx, sess); err != nil {
			// a later Stop waits for it again
			c.mu.Lock()
			if c.draining == nil {
				c.draining = sess
			}
			c.mu.Unlock()

			return err
		}
	}

	c.mu.Lock()
	failed := c.draining
	c.mu.Unlock()
	if failed == nil {
		return nil
	}
	if err := c.shutdown(ctx, failed); err != nil {
		return err
	}
	c.clearDraining(failed)

	return nil
}

func (c *Controller) clearDraining(sess *session) {
	c.mu.Lock()
	if c.draining == sess {
		c.draining = nil
	}
	c.mu.Unlock()
}

// shutdown ends a detached session and waits for its goroutines. Concurrent
// callers all wait for the same teardown.
func (c *Controller) shutdown(ctx context.Context, sess *session) error {
	sess.stopOnce.Do(func() {
		sess.cancel()
		sess.unsubscribe()
		sess.sub.Close()

		go func() {
			sess.wg.Wait()
			sess.queue.Reset()
			c.metrics.RecordQueueDepth(0)
			close(sess.stopped)
		}()
	})

	if _, ok := ctx.Deadline(); !ok && c.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ShutdownTimeout)
		defer cancel()
	}

	select {
	case <-sess.stopped:
		return nil
	case <-ctx.Done():
		c.logger.Error("shutdown timeout exceeded, pipeline goroutines may still be running",
			"session_id", sess.id)

		return fmt.Errorf("stop: %w", ctx.Err())
	}
}

// forwardState queues every transition for the state hook. A single drainer
// goroutine delivers the backlog in transition order.
func (c *Controller) forwardState(change StateChange) {
	c.hookMu.Lock()
	c.hookBacklog = append(c.hookBacklog, change)
	if c.hookRunning {
		c.hookMu.Unlock()
		return
	}
	c.hookRunning = true
	c.hookMu.Unlock()

	go c.deliverStateChanges()
}

func (c *Controller) deliverStateChanges() {
	for {
		c.hookMu.Lock()
		if len(c.hookBacklog) == 0 {
			c.hookRunning = false
			c.hookMu.Unlock()

			return
		}
		change := c.hookBacklog[0]
		c.hookBacklog = c.hookBacklog[1:]
		c.hookMu.Unlock()

		if err := c.hooks.OnStateChanged(context.Background(), change); err != nil {
			c.logger.Warn("state change hook failed", "error", err)
		}
	}
}

// onStateChange runs under the connection's notify lock and must not call back into it.
func (c *Controller) onStateChange(sess *session, change StateChange) {
	if change.To != StateFailed {
		return
	}

	c.mu.Lock()
	owned := c.session == sess
	c.mu.Unlock()
	if !owned {
		return
	}

	err := change.Err
	if err == nil {
		err = &ConnectionError{Fatal: true, Err: types.ErrConnectionFailed}
	}
	c.logger.Error("connection failed", "session_id", sess.id, "error", err)

	// keep the newest fatal error
	select {
	case <-c.fatal:
	default:
	}
	select {
	case c.fatal <- err:
	default:
	}

	go c.endSession(sess)
}

// endSession tears down sess unless Start or Stop already claimed it. Until the
// teardown completes the session stays in draining so Start and Stop wait for it.
func (c *Controller) endSession(sess *session) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()

		return
	}
	c.session = nil
	c.draining = sess
	c.mu.Unlock()

	if err := c.shutdown(context.Background(), sess); err != nil {
		c.logger.Warn("teardown after connection failure incomplete", "session_id", sess.id, "error", err)
		return
	}
	c.clearDraining(sess)
}

// flush runs on the queue goroutine, one call per window.
func (c *Controller) flush(ctx context.Context, batch Batch) {
	c.flushes.Add(1)

	diff := c.reconciler.Apply(c.table, batch)
	if diff.IsEmpty() {
		return
	}

	c.adapter.ConsumeDiff(diff)

	if err := c.hooks.OnDiffApplied(ctx, diff); err != nil {
		c.logger.Warn("diff hook failed", "error", err)
	}
	c.diffListeners.Range(func(_ uint64, cb func(Diff)) bool {
		cb(diff)
		return true
	})
}

func (c *Controller) onParseError(err error) {
	c.parseDrops.Add(1)
	c.reportError(err)
}

func (c *Controller) onMergeError(err error) {
	c.mergeDrops.Add(1)
	c.reportError(err)
}

func (c *Controller) reportError(err error) {
	go func() {
		if hookErr := c.hooks.OnError(context.Background(), err); hookErr != nil {
			c.logger.Warn("error hook failed", "error", hookErr)
		}
	}()
}

// OnDiffApplied registers a listener called on the flush goroutine after each
// non-empty diff reached the surface.
//
// Returns:
//   - func(): Unregisters the listener
func (c *Controller) OnDiffApplied(cb func(Diff)) func() {
	id := c.nextID.Add(1)
	c.diffListeners.Store(id, cb)

	return func() { c.diffListeners.Delete(id) }
}

// OnStateChange registers a listener for connection state transitions.
//
// Listeners are called synchronously in transition order and must not call Start
// or Stop directly.
func (c *Controller) OnStateChange(cb func(StateChange)) func() {
	return c.conn.OnStateChange(cb)
}

// State returns the current connection state.
func (c *Controller) State() ConnectionState {
	return c.conn.State()
}

// Fatal returns a channel that receives the error of a session that ended because
// reconnect attempts were exhausted. The channel holds the most recent error.
func (c *Controller) Fatal() <-chan error {
	return c.fatal
}

// Adapter returns the table adapter for filtering, selection and export.
func (c *Controller) Adapter() *grid.Adapter {
	return c.adapter
}

// Table returns the canonical table.
func (c *Controller) Table() *reconcile.Table {
	return c.table
}

// SessionID returns the identifier of the running session, or "" when stopped.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return ""
	}

	return c.session.id
}

// Running reports whether a session is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session != nil
}

// Diagnostics returns a snapshot of pipeline counters.
func (c *Controller) Diagnostics() Diagnostics {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	d := Diagnostics{
		State:         c.conn.State(),
		TableVersion:  c.table.Version(),
		Rows:          c.table.Len(),
		Flushes:       c.flushes.Load(),
		ParseDropped:  c.parseDrops.Load(),
		MergeDropped:  c.mergeDrops.Load(),
		VisibleRows:   len(c.adapter.VisibleKeys()),
		SelectedRows:  len(c.adapter.SelectedKeys()),
		FilterActive:  len(c.adapter.Filter()) > 0,
		ColumnsActive: len(c.adapter.Columns()),
	}
	if sess != nil {
		d.SessionID = sess.id
		d.QueueDepth = sess.queue.Len()
		d.Parsed, _ = sess.router.Stats()
	}

	return d
}

// Export writes rows in the given scope as CSV.
//
// Returns:
//   - []byte: CSV document with a header row
//   - error: *ExportError on failure
func (c *Controller) Export(scope ExportScope) ([]byte, error) {
	return c.adapter.Export(scope)
}
