package domain

// SessionID identifies one live connection.
type SessionID string

// SessionState tracks the per-session lifecycle:
// CONNECTED (unbound) -> BOUND (active) -> DISCONNECTED (terminal).
type SessionState int

const (
	StateConnected SessionState = iota
	StateBound
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateBound:
		return "BOUND"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}
