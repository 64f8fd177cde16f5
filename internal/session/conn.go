package session

import "go.opentelemetry.io/otel/trace"

// State is the lifecycle position of a connection.
type State int

const (
	StateAnonymous State = iota
	StateRegistered
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateRegistered:
		return "registered"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Conn is the protocol-side view of one websocket connection. It is owned by
// the connection's event loop and must not be shared across goroutines.
type Conn struct {
	ID string
	// AuthUserID is the user proven by the handshake token, 0 when the
	// connection is unauthenticated.
	AuthUserID int
	RequestID  string
	// Handshake is the span context of the upgrade request. Event spans link
	// to it instead of nesting under it, since it ends before the connection does.
	Handshake trace.SpanContext

	state  State
	userID int
}

// NewConn returns an anonymous connection.
func NewConn(id string, authUserID int, requestID string) *Conn {
	return &Conn{ID: id, AuthUserID: authUserID, RequestID: requestID}
}

func (c *Conn) State() State {
	return c.state
}

// UserID returns the user the connection registered as, 0 when anonymous.
func (c *Conn) UserID() int {
	return c.userID
}
