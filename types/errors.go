package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the streamgrid library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// Components wrap external errors with context using fmt.Errorf("%s: %w", msg, err)
// and use the typed errors below when the caller needs structured details.

// Controller errors - Public API errors returned by the Controller.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFactoryRequired is returned when no connection factory is provided.
	ErrFactoryRequired = errors.New("connection factory is required")

	// ErrSurfaceRequired is returned when no rendering surface is provided.
	ErrSurfaceRequired = errors.New("rendering surface is required")

	// ErrAlreadyStarted is returned when Start is called on a running component.
	ErrAlreadyStarted = errors.New("already started")

	// ErrNotStarted is returned when an operation requires a running component.
	ErrNotStarted = errors.New("not started")
)

// Pipeline errors - raised by transport, decoding, merge and export stages.
var (
	// ErrConnectionFailed indicates a transport failure. Transient until reconnect
	// attempts are exhausted, then fatal.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrConnectionLost indicates an established connection broke.
	ErrConnectionLost = errors.New("connection lost")

	// ErrMessageParse indicates an inbound frame could not be decoded.
	ErrMessageParse = errors.New("message parse error")

	// ErrMergeConflict indicates a message could not be merged into the table.
	// Treated like ErrMessageParse: the message is dropped and the batch continues.
	ErrMergeConflict = errors.New("merge conflict")

	// ErrExport indicates an export failure.
	ErrExport = errors.New("export failed")

	// ErrUnknownColumn is returned when a filter or export names an unregistered column.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrClosed is returned by operations on a closed component.
	ErrClosed = errors.New("closed")
)

// ConnectionError wraps a transport failure with the attempt that produced it.
//
// Fatal is true when the error ended the session (attempts exhausted).
type ConnectionError struct {
	Attempt int
	Fatal   bool
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("connection failed permanently after %d attempts: %v", e.Attempt, e.Err)
	}

	return fmt.Sprintf("connection failed (attempt %d): %v", e.Attempt, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *ConnectionError) Unwrap() error { return e.Err }

// Is matches ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool { return target == ErrConnectionFailed }

// MessageParseError reports an inbound frame that could not be decoded.
type MessageParseError struct {
	Subject string
	Err     error
}

func (e *MessageParseError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("message parse error: %v", e.Err)
	}

	return fmt.Sprintf("message parse error on %q: %v", e.Subject, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *MessageParseError) Unwrap() error { return e.Err }

// Is matches ErrMessageParse.
func (e *MessageParseError) Is(target error) bool { return target == ErrMessageParse }

// MergeConflictError reports a message that could not be merged for a row.
type MergeConflictError struct {
	Key    Key
	Reason string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict for key %q: %s", e.Key, e.Reason)
}

// Is matches both ErrMergeConflict and ErrMessageParse: merge conflicts are
// handled exactly like parse failures.
func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict || target == ErrMessageParse
}

// ExportError reports a failed export. Export errors are surfaced synchronously and
// never retried.
type ExportError struct {
	Scope string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export of %s rows failed: %v", e.Scope, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExportError) Unwrap() error { return e.Err }

// Is matches ErrExport.
func (e *ExportError) Is(target error) bool { return target == ErrExport }
