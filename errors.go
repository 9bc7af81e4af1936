package streamgrid

import "github.com/arloliu/streamgrid/types"

// Sentinel errors re-exported from the types package so callers can use
// errors.Is without a second import.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrFactoryRequired is returned when NewController receives no connection factory.
	ErrFactoryRequired = types.ErrFactoryRequired

	// ErrSurfaceRequired is returned when NewController receives no rendering surface.
	ErrSurfaceRequired = types.ErrSurfaceRequired

	// ErrAlreadyStarted is returned when Start is called on a running Controller.
	ErrAlreadyStarted = types.ErrAlreadyStarted

	// ErrNotStarted is returned when an operation requires a running Controller.
	ErrNotStarted = types.ErrNotStarted

	// ErrConnectionFailed matches every transport failure; fatal ones carry
	// *ConnectionError with Fatal set.
	ErrConnectionFailed = types.ErrConnectionFailed

	// ErrConnectionLost indicates an established connection broke.
	ErrConnectionLost = types.ErrConnectionLost

	// ErrMessageParse indicates an inbound frame could not be decoded.
	ErrMessageParse = types.ErrMessageParse

	// ErrMergeConflict indicates a message could not be merged into the table.
	ErrMergeConflict = types.ErrMergeConflict

	// ErrExport indicates an export failure.
	ErrExport = types.ErrExport

	// ErrUnknownColumn is returned when a filter names an unregistered column.
	ErrUnknownColumn = types.ErrUnknownColumn
)

// Structured error types.
type (
	// ConnectionError wraps a transport failure with its attempt number.
	ConnectionError = types.ConnectionError

	// MessageParseError wraps a decode failure with the frame subject.
	MessageParseError = types.MessageParseError

	// MergeConflictError describes a message rejected by the reconciler.
	MergeConflictError = types.MergeConflictError

	// ExportError wraps an export failure with its scope.
	ExportError = types.ExportError
)
