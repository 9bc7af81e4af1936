package reconcile

import (
	"fmt"
	"maps"
	"reflect"
	"time"

	"github.com/arloliu/streamgrid/internal/logging"
	"github.com/arloliu/streamgrid/internal/metrics"
	"github.com/arloliu/streamgrid/types"
)

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger types.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector. Defaults to a no-op collector.
func WithMetrics(m types.MetricsCollector) Option {
	return func(r *Reconciler) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithErrorHandler registers a callback for messages rejected during a merge.
func WithErrorHandler(fn func(err error)) Option {
	return func(r *Reconciler) {
		r.onError = fn
	}
}

// Reconciler merges batches into a Table.
type Reconciler struct {
	logger  types.Logger
	metrics types.MetricsCollector
	onError func(err error)
}

// NewReconciler creates a reconciler.
func NewReconciler(opts ...Option) *Reconciler {
	r := &Reconciler{
		logger:  logging.NewNop(),
		metrics: metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// keyState is the outcome of one batch for one key.
type keyState struct {
	last      types.UpdateMessage
	removed   bool
	hadUpdate bool
}

// Apply merges batch into table and returns the resulting diff.
//
// The whole batch is applied under the table's write lock. Messages that cannot be
// merged are dropped individually with a *types.MergeConflictError reported to the
// error handler; the rest of the batch proceeds.
//
// Parameters:
//   - table: Table to mutate
//   - batch: Messages of one flush window in arrival order
//
// Returns:
//   - types.Diff: Rows added, rows updated (full merged rows), keys removed
//
// Example:
//
//	diff := rec.Apply(table, types.Batch{
//	    {Key: "1", Op: types.OpUpdate, Fields: map[string]any{"price": 10}},
//	    {Key: "1", Op: types.OpUpdate, Fields: map[string]any{"price": 12}},
//	})
//	// diff.Added == [{Key: "1", Fields: {price: 12}}]
func (r *Reconciler) Apply(table *Table, batch types.Batch) types.Diff {
	if len(batch) == 0 {
		return types.Diff{}
	}

	start := time.Now()
	order, states := r.group(batch)

	var diff types.Diff

	table.mu.Lock()
	for _, key := range order {
		st := states[key]
		existing, exists := table.rows[key]

		switch {
		case st.removed:
			if exists {
				delete(table.rows, key)
				diff.RemovedKeys = append(diff.RemovedKeys, key)
			} else if st.hadUpdate {
				// the row may have been shown from this window's update
				diff.RemovedKeys = append(diff.RemovedKeys, key)
			}
		case !exists:
			row := types.NewRow(key, st.last.Fields)
			table.insertLocked(row)
			diff.Added = append(diff.Added, row.Clone())
		default:
			merged := existing.row.Clone()
			maps.Copy(merged.Fields, st.last.Fields)
			if reflect.DeepEqual(merged.Fields, existing.row.Fields) {
				continue
			}
			existing.row = merged
			diff.Updated = append(diff.Updated, merged.Clone())
		}
	}
	if !diff.IsEmpty() {
		table.version++
	}
	table.mu.Unlock()

	r.metrics.RecordApplyDuration(time.Since(start).Seconds())
	r.metrics.RecordDiff(len(diff.Added), len(diff.Updated), len(diff.RemovedKeys))

	return diff
}

// group reduces a batch to one state per key, keyed in first-appearance order.
func (r *Reconciler) group(batch types.Batch) ([]types.Key, map[types.Key]*keyState) {
	order := make([]types.Key, 0, len(batch))
	states := make(map[types.Key]*keyState, len(batch))

	for _, msg := range batch {
		if err := validate(msg); err != nil {
			r.reject(err)
			continue
		}

		st, ok := states[msg.Key]
		if !ok {
			st = &keyState{}
			states[msg.Key] = st
			order = append(order, msg.Key)
		}
		st.last = msg
		if msg.IsRemove() {
			st.removed = true
		} else {
			st.hadUpdate = true
		}
	}

	return order, states
}

func validate(msg types.UpdateMessage) error {
	if msg.Key == "" {
		return &types.MergeConflictError{Reason: "empty key"}
	}
	if !msg.Op.Valid() {
		return &types.MergeConflictError{Key: msg.Key, Reason: fmt.Sprintf("unknown op %q", msg.Op)}
	}

	return nil
}

func (r *Reconciler) reject(err error) {
	r.metrics.RecordMessageDropped("merge")
	r.logger.Warn("dropping message during merge", "error", err)
	if r.onError != nil {
		r.onError(err)
	}
}
