package reconcile

import (
	"cmp"
	"slices"
	"sync"

	"github.com/arloliu/streamgrid/types"
)

type entry struct {
	row types.Row
	seq uint64
}

// Table is the canonical row set. It is safe for concurrent readers; writes happen
// only through Reconciler.Apply.
type Table struct {
	mu      sync.RWMutex
	rows    map[types.Key]*entry
	version uint64
	nextSeq uint64
}

// Snapshot is a consistent copy of the table taken between two applies.
type Snapshot struct {
	// Version is the table version the snapshot was taken at.
	Version uint64

	// Rows holds copies of all rows in insertion order.
	Rows []types.Row
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{rows: make(map[types.Key]*entry)}
}

// Version returns the number of applies that changed the table.
func (t *Table) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.version
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.rows)
}

// Get returns a copy of the row stored under key.
func (t *Table) Get(key types.Key) (types.Row, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.rows[key]
	if !ok {
		return types.Row{}, false
	}

	return e.row.Clone(), true
}

// GetMany returns copies of the rows stored under keys, skipping absent keys.
// All rows come from the same table version.
func (t *Table) GetMany(keys []types.Key) []types.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.Row, 0, len(keys))
	for _, k := range keys {
		if e, ok := t.rows[k]; ok {
			out = append(out, e.row.Clone())
		}
	}

	return out
}

// Keys returns all keys in insertion order.
func (t *Table) Keys() []types.Key {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := t.sortedLocked()
	keys := make([]types.Key, len(entries))
	for i, e := range entries {
		keys[i] = e.row.Key
	}

	return keys
}

// Snapshot copies the whole table.
func (t *Table) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := t.sortedLocked()
	rows := make([]types.Row, len(entries))
	for i, e := range entries {
		rows[i] = e.row.Clone()
	}

	return Snapshot{Version: t.version, Rows: rows}
}

func (t *Table) sortedLocked() []*entry {
	entries := make([]*entry, 0, len(t.rows))
	for _, e := range t.rows {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b *entry) int { return cmp.Compare(a.seq, b.seq) })

	return entries
}

// insertLocked stores a new row. Caller holds the write lock.
func (t *Table) insertLocked(row types.Row) {
	t.nextSeq++
	t.rows[row.Key] = &entry{row: row, seq: t.nextSeq}
}
