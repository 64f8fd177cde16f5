package ws

import (
	"time"

	"go.uber.org/zap"
)

// ConnInfo is the handshake metadata of a connection. UserID is the token
// subject and stays 0 for unauthenticated connections.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func (i ConnInfo) logFields() []zap.Field {
	return []zap.Field{
		zap.String("conn_id", i.ConnID),
		zap.Int("auth_user_id", i.UserID),
		zap.String("ip", i.IP),
		zap.String("request_id", i.RequestID),
	}
}
