package grid

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/arloliu/streamgrid/internal/logging"
	"github.com/arloliu/streamgrid/internal/metrics"
	"github.com/arloliu/streamgrid/reconcile"
	"github.com/arloliu/streamgrid/types"
	"github.com/puzpuzpuz/xsync/v4"
)

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger types.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector. Defaults to a no-op collector.
func WithMetrics(m types.MetricsCollector) Option {
	return func(a *Adapter) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithColumns registers column metadata.
func WithColumns(cols ...Column) Option {
	return func(a *Adapter) {
		a.columns = slices.Clone(cols)
	}
}

// Adapter exposes table operations and drives the rendering surface.
//
// ConsumeDiff and filter changes are serialized; each produces at most one surface
// transaction. The surface is referenced, never owned.
type Adapter struct {
	table   *reconcile.Table
	surface types.Surface
	logger  types.Logger
	metrics types.MetricsCollector

	// mu serializes surface transactions and guards columns, filter and visible.
	mu      sync.Mutex
	columns []Column
	filter  Criteria
	visible map[types.Key]struct{}

	// selMu guards selection only, so a surface may report selection changes
	// from inside a transaction.
	selMu     sync.Mutex
	selection []types.Key

	selListeners *xsync.Map[uint64, func([]types.Key)]
	nextID       atomic.Uint64
}

// NewAdapter creates an adapter over table that renders to surface.
//
// Returns:
//   - *Adapter: Adapter with an empty view
//   - error: types.ErrSurfaceRequired, or an invalid column registration
func NewAdapter(table *reconcile.Table, surface types.Surface, opts ...Option) (*Adapter, error) {
	if surface == nil {
		return nil, types.ErrSurfaceRequired
	}
	if table == nil {
		table = reconcile.NewTable()
	}

	a := &Adapter{
		table:        table,
		surface:      surface,
		logger:       logging.NewNop(),
		metrics:      metrics.NewNop(),
		visible:      make(map[types.Key]struct{}),
		selListeners: xsync.NewMap[uint64, func([]types.Key)](),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := validateColumns(a.columns); err != nil {
		return nil, err
	}

	return a, nil
}

// Table returns the canonical table the adapter reads.
func (a *Adapter) Table() *reconcile.Table {
	return a.table
}

// Columns returns the registered columns in registration order.
func (a *Adapter) Columns() []Column {
	a.mu.Lock()
	defer a.mu.Unlock()

	return slices.Clone(a.columns)
}

// RegisterColumns replaces the column metadata.
func (a *Adapter) RegisterColumns(cols ...Column) error {
	if err := validateColumns(cols); err != nil {
		return err
	}

	a.mu.Lock()
	a.columns = slices.Clone(cols)
	a.mu.Unlock()

	return nil
}

// ConsumeDiff renders one reconciliation diff as a single surface transaction.
//
// Rows are routed through the active filter: an added or updated row that fails
// the filter is not shown (or is removed if it was shown), an updated row that now
// passes is added. Removed keys also leave the selection. An empty diff causes no
// surface call.
func (a *Adapter) ConsumeDiff(diff types.Diff) {
	if diff.IsEmpty() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var tx transaction
	for _, key := range diff.RemovedKeys {
		if _, shown := a.visible[key]; shown {
			delete(a.visible, key)
			tx.remove = append(tx.remove, key)
		}
	}
	for _, row := range diff.Added {
		a.route(&tx, row)
	}
	for _, row := range diff.Updated {
		a.route(&tx, row)
	}

	a.commit(tx)

	if len(diff.RemovedKeys) > 0 {
		a.dropFromSelection(diff.RemovedKeys)
	}
}

// route places one changed row into the transaction according to the filter.
func (a *Adapter) route(tx *transaction, row types.Row) {
	_, shown := a.visible[row.Key]
	pass := a.filter.Match(row)

	switch {
	case pass && shown:
		tx.update = append(tx.update, row)
	case pass:
		a.visible[row.Key] = struct{}{}
		tx.add = append(tx.add, row)
	case shown:
		delete(a.visible, row.Key)
		tx.remove = append(tx.remove, row.Key)
	}
}

// ApplyFilter replaces the active filter and updates the surface to show exactly
// the matching rows.
//
// Returns:
//   - error: Invalid operator, or types.ErrUnknownColumn for an unregistered field
func (a *Adapter) ApplyFilter(criteria ...Criterion) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := validateCriteria(criteria, a.columns); err != nil {
		return err
	}
	a.filter = slices.Clone(Criteria(criteria))
	a.refreshLocked()

	return nil
}

// ClearFilters shows every row again.
func (a *Adapter) ClearFilters() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.filter = nil
	a.refreshLocked()
}

// Filter returns the active criteria.
func (a *Adapter) Filter() Criteria {
	a.mu.Lock()
	defer a.mu.Unlock()

	return slices.Clone(a.filter)
}

// Resync re-evaluates the view against the whole table. Rows the table holds but
// the surface never received are added; rows that no longer exist are removed.
func (a *Adapter) Resync() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.refreshLocked()
}

func (a *Adapter) refreshLocked() {
	snap := a.table.Snapshot()

	var tx transaction
	next := make(map[types.Key]struct{}, len(snap.Rows))
	for _, row := range snap.Rows {
		if !a.filter.Match(row) {
			continue
		}
		next[row.Key] = struct{}{}
		if _, shown := a.visible[row.Key]; !shown {
			tx.add = append(tx.add, row)
		}
	}
	for key := range a.visible {
		if _, keep := next[key]; !keep {
			tx.remove = append(tx.remove, key)
		}
	}
	slices.Sort(tx.remove)
	a.visible = next

	a.commit(tx)
}

// VisibleKeys returns the keys currently shown, in table order.
func (a *Adapter) VisibleKeys() []types.Key {
	a.mu.Lock()
	visible := make(map[types.Key]struct{}, len(a.visible))
	for k := range a.visible {
		visible[k] = struct{}{}
	}
	a.mu.Unlock()

	keys := a.table.Keys()
	out := keys[:0]
	for _, k := range keys {
		if _, ok := visible[k]; ok {
			out = append(out, k)
		}
	}

	return out
}

// OnSelectionChanged records the surface's current selection. Keys that are not
// in the table are ignored. Registered selection listeners are notified.
func (a *Adapter) OnSelectionChanged(keys []types.Key) {
	present := a.table.GetMany(keys)
	sel := make([]types.Key, 0, len(present))
	for _, r := range present {
		sel = append(sel, r.Key)
	}

	a.selMu.Lock()
	a.selection = sel
	a.selMu.Unlock()

	a.notifySelection(sel)
}

// Selection returns the full rows for the selected keys, in selection order.
func (a *Adapter) Selection() []types.Row {
	return a.table.GetMany(a.SelectedKeys())
}

// SelectedKeys returns the selected keys in selection order.
func (a *Adapter) SelectedKeys() []types.Key {
	a.selMu.Lock()
	defer a.selMu.Unlock()

	return slices.Clone(a.selection)
}

// OnSelection registers a listener for selection changes.
//
// Returns:
//   - func(): Unregisters the listener
func (a *Adapter) OnSelection(cb func(keys []types.Key)) func() {
	id := a.nextID.Add(1)
	a.selListeners.Store(id, cb)

	return func() { a.selListeners.Delete(id) }
}

func (a *Adapter) dropFromSelection(removed []types.Key) {
	gone := make(map[types.Key]struct{}, len(removed))
	for _, k := range removed {
		gone[k] = struct{}{}
	}

	a.selMu.Lock()
	before := len(a.selection)
	a.selection = slices.DeleteFunc(a.selection, func(k types.Key) bool {
		_, ok := gone[k]
		return ok
	})
	changed := len(a.selection) != before
	sel := slices.Clone(a.selection)
	a.selMu.Unlock()

	if changed {
		a.notifySelection(sel)
	}
}

func (a *Adapter) notifySelection(sel []types.Key) {
	a.selListeners.Range(func(_ uint64, cb func([]types.Key)) bool {
		cb(slices.Clone(sel))
		return true
	})
}

// transaction collects the primitive operations of one surface update.
type transaction struct {
	add    []types.Row
	update []types.Row
	remove []types.Key
}

func (t transaction) empty() bool {
	return len(t.add) == 0 && len(t.update) == 0 && len(t.remove) == 0
}

// commit issues tx to the surface. Caller holds mu.
func (a *Adapter) commit(tx transaction) {
	if tx.empty() {
		return
	}

	ts, transactional := a.surface.(types.TransactionalSurface)
	if transactional {
		ts.BeginTransaction()
	}
	if len(tx.remove) > 0 {
		a.surface.RemoveRows(tx.remove)
	}
	if len(tx.add) > 0 {
		a.surface.AddRows(tx.add)
	}
	if len(tx.update) > 0 {
		a.surface.UpdateRows(tx.update)
	}
	if transactional {
		ts.CommitTransaction()
	}

	a.metrics.RecordSurfaceTransaction(len(tx.add), len(tx.update), len(tx.remove))
	a.logger.Debug("surface transaction",
		"added", len(tx.add), "updated", len(tx.update), "removed", len(tx.remove))
}
