package testing

import (
	"slices"
	"sync"
	"time"

	"github.com/arloliu/streamgrid/types"
)

// Transaction is one recorded surface transaction.
type Transaction struct {
	Added   []types.Row
	Updated []types.Row
	Removed []types.Key
	At      time.Time
}

// RecordingSurface is a types.TransactionalSurface that records every call.
//
// Primitive calls made outside Begin/Commit are recorded as single-call transactions.
// The surface also tracks the rows it currently displays, like a real grid would.
type RecordingSurface struct {
	mu      sync.Mutex
	open    *Transaction
	txs     []Transaction
	rows    map[types.Key]types.Row
	calls   int
	changed chan struct{}
}

var _ types.TransactionalSurface = (*RecordingSurface)(nil)

// NewRecordingSurface creates an empty recording surface.
func NewRecordingSurface() *RecordingSurface {
	return &RecordingSurface{
		rows:    make(map[types.Key]types.Row),
		changed: make(chan struct{}, 1),
	}
}

// BeginTransaction implements types.TransactionalSurface.
func (s *RecordingSurface) BeginTransaction() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = &Transaction{}
}

// CommitTransaction implements types.TransactionalSurface.
func (s *RecordingSurface) CommitTransaction() {
	s.mu.Lock()
	if s.open != nil {
		s.open.At = time.Now()
		s.txs = append(s.txs, *s.open)
		s.open = nil
	}
	s.mu.Unlock()

	s.notify()
}

// AddRows implements types.Surface.
func (s *RecordingSurface) AddRows(rows []types.Row) {
	s.record(func(tx *Transaction) {
		tx.Added = append(tx.Added, rows...)
		for _, r := range rows {
			s.rows[r.Key] = r
		}
	})
}

// UpdateRows implements types.Surface.
func (s *RecordingSurface) UpdateRows(rows []types.Row) {
	s.record(func(tx *Transaction) {
		tx.Updated = append(tx.Updated, rows...)
		for _, r := range rows {
			s.rows[r.Key] = r
		}
	})
}

// RemoveRows implements types.Surface.
func (s *RecordingSurface) RemoveRows(keys []types.Key) {
	s.record(func(tx *Transaction) {
		tx.Removed = append(tx.Removed, keys...)
		for _, k := range keys {
			delete(s.rows, k)
		}
	})
}

func (s *RecordingSurface) record(apply func(tx *Transaction)) {
	s.mu.Lock()
	s.calls++
	if s.open != nil {
		apply(s.open)
		s.mu.Unlock()

		return
	}
	tx := Transaction{At: time.Now()}
	apply(&tx)
	s.txs = append(s.txs, tx)
	s.mu.Unlock()

	s.notify()
}

func (s *RecordingSurface) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Transactions returns a copy of the recorded transactions.
func (s *RecordingSurface) Transactions() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.txs)
}

// Calls returns the number of primitive calls received.
func (s *RecordingSurface) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

// Displayed returns the row currently shown for key.
func (s *RecordingSurface) Displayed(key types.Key) (types.Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[key]

	return r, ok
}

// DisplayedKeys returns the sorted keys currently shown.
func (s *RecordingSurface) DisplayedKeys() []types.Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]types.Key, 0, len(s.rows))
	for k := range s.rows {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}

// WaitForTransactions blocks until at least n transactions were recorded or the
// timeout expires.
//
// Returns:
//   - bool: true if n transactions were observed
func (s *RecordingSurface) WaitForTransactions(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		got := len(s.txs)
		s.mu.Unlock()
		if got >= n {
			return true
		}

		select {
		case <-s.changed:
		case <-deadline.C:
			return false
		}
	}
}
