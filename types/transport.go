package types

import (
	"context"
	"time"
)

// RawMessage is a frame received from the stream source before decoding.
type RawMessage struct {
	// Subject is the transport-level channel the frame arrived on (may be empty).
	Subject string

	// Data is the encoded payload.
	Data []byte

	// ReceivedAt is the local receive time.
	ReceivedAt time.Time
}

// Conn is one physical connection to the stream source.
//
// Receive blocks until a frame arrives, the context is canceled, or the connection
// breaks. Close must unblock a pending Receive. Implementations need only support a
// single reader.
type Conn interface {
	Receive(ctx context.Context) (RawMessage, error)
	Close() error
}

// ConnectionFactory establishes physical connections. The transport connection calls
// Dial once per connect attempt and owns retry policy; factories should not retry.
type ConnectionFactory interface {
	Dial(ctx context.Context) (Conn, error)
}

// ConnectionFactoryFunc is a function adapter for ConnectionFactory.
type ConnectionFactoryFunc func(ctx context.Context) (Conn, error)

// Dial implements ConnectionFactory.
func (f ConnectionFactoryFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }
