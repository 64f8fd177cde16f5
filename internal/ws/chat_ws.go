package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"rental-chat/internal/auth"
	"rental-chat/internal/models"
	"rental-chat/internal/observability"
	"rental-chat/internal/session"
)

// ChatWebSocketHandler upgrades chat connections and runs their event loops.
type ChatWebSocketHandler struct {
	hub        *Hub
	protocol   *session.Protocol
	verifier   *auth.Verifier
	sendBuffer int
	log        *zap.Logger
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler. A nil verifier
// accepts unauthenticated connections.
func NewChatWebSocketHandler(hub *Hub, protocol *session.Protocol, verifier *auth.Verifier, sendBuffer int, log *zap.Logger) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{hub: hub, protocol: protocol, verifier: verifier, sendBuffer: sendBuffer, log: log}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and starts its event loop.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("rental-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var userID int
	if h.verifier != nil {
		id, err := h.authenticate(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID = id
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	var traceID string
	if sc := span.SpanContext(); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceID(c.Request),
		IP:          c.ClientIP(),
		RequestID:   observability.RequestID(c.Request),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	client := newClient(conn, info, h.sendBuffer)
	h.hub.Add(client)

	observability.IncWSActive()
	publishLifecycle(ctx, info, "ws_connect", "")
	h.log.Debug("websocket connected", info.logFields()...)

	go h.serve(span.SpanContext(), client)
}

func (h *ChatWebSocketHandler) authenticate(c *gin.Context) (int, error) {
	token := c.Query("token")
	if header := c.GetHeader("Authorization"); header != "" {
		t, err := auth.BearerToken(header)
		if err != nil {
			return 0, err
		}
		token = t
	}
	return h.verifier.Verify(token)
}

// serve feeds inbound events to the protocol one at a time until the client
// disconnects or the connection fails.
func (h *ChatWebSocketHandler) serve(handshake trace.SpanContext, client *Client) {
	ctx := context.Background()
	info := client.info
	sess := session.NewConn(info.ConnID, info.UserID, info.RequestID)
	sess.Handshake = handshake
	inbound := make(chan models.InboundEvent, inboundBuffer)
	readErr := make(chan error, 1)

	go client.writePump()
	go func() { readErr <- client.readPump(inbound) }()

	for ev := range inbound {
		h.protocol.Handle(ctx, sess, ev)
		if sess.State() == session.StateDisconnected {
			break
		}
	}
	clientLeft := sess.State() == session.StateDisconnected

	h.protocol.Disconnect(ctx, sess)
	h.hub.Remove(info.ConnID)
	client.close()
	err := <-readErr
	observability.DecWSActive()

	var reason string
	switch {
	case clientLeft:
		reason = models.EventDisconnect
	case err != nil:
		reason = err.Error()
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			publishLifecycle(ctx, info, "ws_error", reason)
		}
	}
	publishLifecycle(ctx, info, "ws_disconnect", reason)
	h.log.Debug("websocket closed", append(info.logFields(), zap.String("reason", reason))...)
}
