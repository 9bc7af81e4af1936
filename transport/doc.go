// Package transport manages the physical connection to the stream source.
//
// A Connection owns exactly one physical connection at a time, obtained from an
// injected types.ConnectionFactory. It drives the connection state machine:
//
//	Disconnected -> Connecting -> Connected
//	Connected -> Reconnecting -> Connecting
//	Reconnecting -> Failed (attempts exhausted)
//
// Failed connects are retried with exponential backoff; a successful connect resets
// the attempt counter. Exhausting the configured attempts moves the connection to
// Failed and stops it. Recovery from Failed requires an explicit Connect.
//
// Factories are provided for NATS core subjects (NATSFactory), a JetStream
// key-value bucket (KVFactory), and JSON frames over websocket (WebSocketFactory).
package transport
