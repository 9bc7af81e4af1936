package types

// ConnectionState represents the transport connection lifecycle state.
//
// Normal progression:
//
//	Disconnected → Connecting → Connected
//
// On a transport error:
//
//	Connected → Reconnecting → Connecting → Connected
//
// When reconnect attempts are exhausted:
//
//	Reconnecting → Failed
//
// Failed is terminal for the current session; only an explicit Connect leaves it.
type ConnectionState int

const (
	// StateDisconnected is the initial state and the state after Disconnect.
	StateDisconnected ConnectionState = iota

	// StateConnecting indicates a dial to the stream source is in progress.
	StateConnecting

	// StateConnected indicates an established connection delivering messages.
	StateConnected

	// StateReconnecting indicates the connection was lost and a backoff delay is running.
	StateReconnecting

	// StateFailed indicates reconnect attempts were exhausted.
	StateFailed
)

// String returns the string representation of the state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateReconnecting:
		return "Reconnecting"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// StateChange describes one connection state transition.
//
// Err is set when the transition was caused by a failure (Connected → Reconnecting,
// Connecting → Reconnecting, Reconnecting → Failed).
type StateChange struct {
	From ConnectionState
	To   ConnectionState
	Err  error
}
