package grid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/streamgrid/reconcile"
	gridtest "github.com/arloliu/streamgrid/testing"
	"github.com/arloliu/streamgrid/types"
)

// fixture wires a table, reconciler and adapter the way the controller does.
type fixture struct {
	table   *reconcile.Table
	rec     *reconcile.Reconciler
	surface *gridtest.RecordingSurface
	adapter *Adapter
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		table:   reconcile.NewTable(),
		rec:     reconcile.NewReconciler(),
		surface: gridtest.NewRecordingSurface(),
	}
	opts = append([]Option{WithLogger(gridtest.NewTestLogger(t))}, opts...)
	a, err := NewAdapter(f.table, f.surface, opts...)
	require.NoError(t, err)
	f.adapter = a

	return f
}

func (f *fixture) flush(msgs ...types.UpdateMessage) types.Diff {
	diff := f.rec.Apply(f.table, msgs)
	f.adapter.ConsumeDiff(diff)

	return diff
}

func upd(key string, fields map[string]any) types.UpdateMessage {
	return types.UpdateMessage{Key: types.Key(key), Op: types.OpUpdate, Fields: fields}
}

func rem(key string) types.UpdateMessage {
	return types.UpdateMessage{Key: types.Key(key), Op: types.OpRemove}
}

func rowKeys(rows []types.Row) []types.Key {
	out := make([]types.Key, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Key)
	}

	return out
}

func TestNewAdapter_Validation(t *testing.T) {
	_, err := NewAdapter(reconcile.NewTable(), nil)
	require.ErrorIs(t, err, types.ErrSurfaceRequired)

	_, err = NewAdapter(nil, gridtest.NewRecordingSurface(), WithColumns(Column{Field: "a"}, Column{Field: "a"}))
	require.ErrorIs(t, err, types.ErrInvalidConfig)

	a, err := NewAdapter(nil, gridtest.NewRecordingSurface())
	require.NoError(t, err)
	require.NotNil(t, a.Table())
}

func TestConsumeDiff_OneTransactionPerFlush(t *testing.T) {
	f := newFixture(t)
	f.flush(upd("1", map[string]any{"price": 10}), upd("2", map[string]any{"price": 20}))
	f.flush(upd("1", map[string]any{"price": 11}), rem("2"), upd("3", nil))

	txs := f.surface.Transactions()
	require.Len(t, txs, 2)

	require.Equal(t, []types.Key{"1", "2"}, rowKeys(txs[0].Added))
	require.Empty(t, txs[0].Updated)
	require.Empty(t, txs[0].Removed)

	require.Equal(t, []types.Key{"3"}, rowKeys(txs[1].Added))
	require.Equal(t, []types.Key{"1"}, rowKeys(txs[1].Updated))
	require.Equal(t, 11, txs[1].Updated[0].Fields["price"])
	require.Equal(t, []types.Key{"2"}, txs[1].Removed)

	require.Equal(t, []types.Key{"1", "3"}, f.surface.DisplayedKeys())
}

func TestConsumeDiff_EmptyDiffNoSurfaceCall(t *testing.T) {
	f := newFixture(t)
	f.adapter.ConsumeDiff(types.Diff{})
	f.flush(rem("absent"))

	require.Zero(t, f.surface.Calls())
	require.Empty(t, f.surface.Transactions())
}

func TestConsumeDiff_RemoveOfNeverShownKey(t *testing.T) {
	f := newFixture(t)
	diff := f.flush(upd("2", nil), rem("2"))

	require.Equal(t, []types.Key{"2"}, diff.RemovedKeys)
	require.Zero(t, f.surface.Calls())
}

// plainSurface records calls without transaction support.
type plainSurface struct {
	mu    sync.Mutex
	calls []string
}

func (p *plainSurface) AddRows([]types.Row) { p.record("add") }

func (p *plainSurface) UpdateRows([]types.Row) { p.record("update") }

func (p *plainSurface) RemoveRows([]types.Key) { p.record("remove") }

func (p *plainSurface) record(op string) {
	p.mu.Lock()
	p.calls = append(p.calls, op)
	p.mu.Unlock()
}

func TestConsumeDiff_PlainSurface(t *testing.T) {
	table := reconcile.NewTable()
	rec := reconcile.NewReconciler()
	s := &plainSurface{}
	a, err := NewAdapter(table, s)
	require.NoError(t, err)

	a.ConsumeDiff(rec.Apply(table, types.Batch{upd("1", nil), upd("2", nil)}))
	a.ConsumeDiff(rec.Apply(table, types.Batch{upd("1", map[string]any{"x": 1}), rem("2"), upd("3", nil)}))

	require.Equal(t, []string{"add", "remove", "add", "update"}, s.calls)
}

func TestFilter_HidesWithoutDiscarding(t *testing.T) {
	f := newFixture(t)
	f.flush(
		upd("1", map[string]any{"desk": "eu", "price": 10}),
		upd("2", map[string]any{"desk": "us", "price": 20}),
		upd("3", map[string]any{"desk": "eu", "price": 30}),
	)

	require.NoError(t, f.adapter.ApplyFilter(Criterion{Field: "desk", Op: OpEq, Value: "eu"}))
	require.Equal(t, []types.Key{"1", "3"}, f.surface.DisplayedKeys())
	require.Equal(t, []types.Key{"1", "3"}, f.adapter.VisibleKeys())
	require.Equal(t, 3, f.table.Len())

	last := f.surface.Transactions()[len(f.surface.Transactions())-1]
	require.Equal(t, []types.Key{"2"}, last.Removed)

	f.adapter.ClearFilters()
	require.Equal(t, []types.Key{"1", "2", "3"}, f.surface.DisplayedKeys())
	require.Empty(t, f.adapter.Filter())
}

func TestFilter_DiffRoutingThroughFilter(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.adapter.ApplyFilter(Criterion{Field: "price", Op: OpGte, Value: 15}))

	f.flush(upd("1", map[string]any{"price": 10}), upd("2", map[string]any{"price": 20}))
	require.Equal(t, []types.Key{"2"}, f.surface.DisplayedKeys())

	// 1 enters the view, 2 leaves it
	f.flush(upd("1", map[string]any{"price": 16}), upd("2", map[string]any{"price": 5}))
	txs := f.surface.Transactions()
	last := txs[len(txs)-1]
	require.Equal(t, []types.Key{"1"}, rowKeys(last.Added))
	require.Equal(t, []types.Key{"2"}, last.Removed)
	require.Empty(t, last.Updated)
	require.Equal(t, []types.Key{"1"}, f.surface.DisplayedKeys())

	// hidden row changes and stays hidden: no surface call
	calls := f.surface.Calls()
	f.flush(upd("2", map[string]any{"price": 6}))
	require.Equal(t, calls, f.surface.Calls())
}

func TestFilter_Validation(t *testing.T) {
	f := newFixture(t, WithColumns(Column{Field: "price"}))

	require.ErrorIs(t, f.adapter.ApplyFilter(Criterion{Field: "price", Op: "like"}), types.ErrInvalidConfig)
	require.ErrorIs(t, f.adapter.ApplyFilter(Criterion{Field: "desk", Op: OpEq}), types.ErrUnknownColumn)
	require.ErrorIs(t, f.adapter.ApplyFilter(Criterion{Op: OpEq}), types.ErrInvalidConfig)
	require.NoError(t, f.adapter.ApplyFilter(Criterion{Field: types.KeyField, Op: OpEq, Value: "1"}))
}

func TestSelection(t *testing.T) {
	f := newFixture(t)
	f.flush(upd("1", map[string]any{"v": 1}), upd("2", map[string]any{"v": 2}), upd("3", nil))

	var notified [][]types.Key
	unsubscribe := f.adapter.OnSelection(func(keys []types.Key) { notified = append(notified, keys) })
	defer unsubscribe()

	f.adapter.OnSelectionChanged([]types.Key{"3", "1", "missing"})
	require.Equal(t, []types.Key{"3", "1"}, f.adapter.SelectedKeys())

	sel := f.adapter.Selection()
	require.Equal(t, []types.Key{"3", "1"}, rowKeys(sel))
	require.Equal(t, 1, sel[1].Fields["v"])

	// removed rows leave the selection
	f.flush(rem("3"))
	require.Equal(t, []types.Key{"1"}, f.adapter.SelectedKeys())
	require.Equal(t, [][]types.Key{{"3", "1"}, {"1"}}, notified)

	// selection reflects the latest row contents
	f.flush(upd("1", map[string]any{"v": 100}))
	require.Equal(t, 100, f.adapter.Selection()[0].Fields["v"])
}

func TestResync_ShowsRowsAppliedWithoutAdapter(t *testing.T) {
	f := newFixture(t)
	f.rec.Apply(f.table, types.Batch{upd("1", nil), upd("2", nil)})
	require.Zero(t, f.surface.Calls())

	f.adapter.Resync()
	require.Equal(t, []types.Key{"1", "2"}, f.surface.DisplayedKeys())

	// an added row that is already displayed is sent as an update
	f.adapter.ConsumeDiff(types.Diff{Added: []types.Row{types.NewRow("1", map[string]any{"x": 1})}})
	txs := f.surface.Transactions()
	require.Equal(t, []types.Key{"1"}, rowKeys(txs[len(txs)-1].Updated))
}

func TestRegisterColumns(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.adapter.RegisterColumns(Column{Field: "b", Header: "B"}, Column{Field: "a"}))
	require.Equal(t, []Column{{Field: "b", Header: "B"}, {Field: "a"}}, f.adapter.Columns())
	require.ErrorIs(t, f.adapter.RegisterColumns(Column{}), types.ErrInvalidConfig)
}
