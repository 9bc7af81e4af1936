package streamgrid

import (
	"github.com/arloliu/streamgrid/grid"
	"github.com/arloliu/streamgrid/types"
)

// Type aliases for the public API.
//
// The implementations live in the types package so pipeline packages can share
// them without importing the root package. Aliases let callers use a single import.

// Data model.
type (
	// Key identifies a row.
	Key = types.Key

	// Row is one table row: a key and its fields.
	Row = types.Row

	// Op is the operation carried by an update message.
	Op = types.Op

	// UpdateMessage is one decoded inbound message.
	UpdateMessage = types.UpdateMessage

	// Batch is the ordered set of messages of one flush window.
	Batch = types.Batch

	// Diff is the delta produced by one reconciliation cycle.
	Diff = types.Diff
)

// Message operations.
const (
	OpUpdate = types.OpUpdate
	OpRemove = types.OpRemove
)

// Connection lifecycle.
type (
	// ConnectionState is the transport connection lifecycle state.
	ConnectionState = types.ConnectionState

	// StateChange describes one connection state transition.
	StateChange = types.StateChange

	// RawMessage is a frame received from the stream source before decoding.
	RawMessage = types.RawMessage

	// Conn is one physical connection to the stream source.
	Conn = types.Conn

	// ConnectionFactory establishes physical connections.
	ConnectionFactory = types.ConnectionFactory

	// ConnectionFactoryFunc adapts a function to ConnectionFactory.
	ConnectionFactoryFunc = types.ConnectionFactoryFunc
)

// Connection states.
const (
	StateDisconnected = types.StateDisconnected
	StateConnecting   = types.StateConnecting
	StateConnected    = types.StateConnected
	StateReconnecting = types.StateReconnecting
	StateFailed       = types.StateFailed
)

// Rendering surface and grid.
type (
	// Surface is the rendering surface driven by the adapter.
	Surface = types.Surface

	// TransactionalSurface is a Surface that can batch a flush into one redraw.
	TransactionalSurface = types.TransactionalSurface

	// Column describes a registered grid column.
	Column = grid.Column

	// Criterion is one filter condition.
	Criterion = grid.Criterion

	// ExportScope selects the rows an export covers.
	ExportScope = grid.Scope
)

// Ambient interfaces.
type (
	// Logger defines methods for structured logging.
	Logger = types.Logger

	// MetricsCollector defines methods for recording operational metrics.
	MetricsCollector = types.MetricsCollector

	// Hooks defines callbacks for Controller lifecycle events.
	Hooks = types.Hooks
)

// Export scopes.
const (
	ExportAll      = grid.ScopeAll
	ExportSelected = grid.ScopeSelected
	ExportVisible  = grid.ScopeVisible
)
