package types

// Surface is the rendering surface (the visual grid) driven by the table adapter.
//
// The surface references rows it receives but never owns them; the canonical table
// remains the source of truth. Implementations are called from a single goroutine
// at a time.
type Surface interface {
	AddRows(rows []Row)
	UpdateRows(rows []Row)
	RemoveRows(keys []Key)
}

// TransactionalSurface is implemented by surfaces that can group operations so a
// whole flush cycle is redrawn once. When a surface implements it, the adapter wraps
// every cycle's primitive calls in Begin/Commit.
type TransactionalSurface interface {
	Surface
	BeginTransaction()
	CommitTransaction()
}
