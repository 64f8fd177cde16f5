// Package session implements the chat protocol spoken over a websocket
// connection: registration, conversation viewing, messaging and read receipts.
package session

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"rental-chat/internal/activechat"
	"rental-chat/internal/models"
	"rental-chat/internal/observability"
	"rental-chat/internal/presence"
	"rental-chat/internal/repositories"
)

// Emitter pushes an event to one connection. It reports false when the
// connection is gone or cannot accept more events.
type Emitter interface {
	Emit(connID string, ev models.OutboundEvent) bool
}

// ChatLister builds chat lists and drops stale ones.
type ChatLister interface {
	ChatList(ctx context.Context, userID int) ([]models.ChatSummary, error)
	Invalidate(ctx context.Context, userIDs ...int)
}

// Protocol handles inbound events for all connections. Per-connection
// ordering is the caller's job; Protocol itself is safe for concurrent use.
type Protocol struct {
	messages repositories.MessageRepository
	chats    ChatLister
	registry *presence.Registry
	tracker  *activechat.Tracker
	sockets  repositories.SocketRepository
	emitter  Emitter
	log      *zap.Logger
	tracer   trace.Tracer
}

// NewProtocol constructs a Protocol. sockets may be nil to skip the durable
// presence mirror.
func NewProtocol(
	messages repositories.MessageRepository,
	chats ChatLister,
	registry *presence.Registry,
	tracker *activechat.Tracker,
	sockets repositories.SocketRepository,
	emitter Emitter,
	log *zap.Logger,
) *Protocol {
	return &Protocol{
		messages: messages,
		chats:    chats,
		registry: registry,
		tracker:  tracker,
		sockets:  sockets,
		emitter:  emitter,
		log:      log,
		tracer:   otel.Tracer("rental-chat/session"),
	}
}

// Handle processes one inbound event. Failures are reported to the
// connection as error events and never close it.
func (p *Protocol) Handle(ctx context.Context, c *Conn, in models.InboundEvent) {
	start := time.Now()
	label := eventLabel(in.Event)
	opts := []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("ws.conn_id", c.ID),
			attribute.Int("chat.user_id", c.userID),
		),
	}
	if c.Handshake.IsValid() {
		opts = append(opts, trace.WithLinks(trace.Link{SpanContext: c.Handshake}))
	}
	ctx, span := p.tracer.Start(ctx, "session."+label, opts...)
	defer span.End()

	err := p.dispatch(ctx, c, in)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.reject(c, in.Event, err)
	}
	observability.ObserveSessionEvent(label, outcome, time.Since(start))
}

func (p *Protocol) dispatch(ctx context.Context, c *Conn, in models.InboundEvent) error {
	if c.state == StateDisconnected {
		return ErrDisconnected
	}
	switch in.Event {
	case models.EventRegisterUser:
		return p.registerUser(ctx, c, in.Data)
	case models.EventDisconnect:
		p.Disconnect(ctx, c)
		return nil
	case models.EventOpenChat, models.EventCloseChat, models.EventGetMessages, models.EventSendMessage,
		models.EventGetChatList, models.EventMarkMessagesAsRead:
	default:
		return ErrUnknownEvent
	}

	if c.state != StateRegistered {
		return ErrNotRegistered
	}
	switch in.Event {
	case models.EventOpenChat:
		return p.openChat(ctx, c, in.Data)
	case models.EventCloseChat:
		return p.closeChat(c, in.Data)
	case models.EventGetMessages:
		return p.getMessages(ctx, c, in.Data)
	case models.EventSendMessage:
		return p.sendMessage(ctx, c, in.Data)
	case models.EventGetChatList:
		return p.getChatList(ctx, c, in.Data)
	default:
		return p.markMessagesAsRead(ctx, c, in.Data)
	}
}

func (p *Protocol) reject(c *Conn, event string, err error) {
	notice, clientFault := noticeFor(err)
	fields := []zap.Field{
		zap.String("event", event),
		zap.String("conn_id", c.ID),
		zap.Int("user_id", c.userID),
		zap.Error(err),
	}
	if clientFault {
		p.log.Debug("session event rejected", fields...)
	} else {
		p.log.Error("session event failed", fields...)
	}
	p.emit(c.ID, models.EventError, models.ErrorNotice{Message: notice})
}

func (p *Protocol) registerUser(ctx context.Context, c *Conn, data []byte) error {
	userID, err := decodeUserID(data)
	if err != nil {
		return err
	}
	if err := authorize(c, userID); err != nil {
		return err
	}
	if p.sockets != nil {
		if err := p.sockets.Upsert(ctx, userID, c.ID); err != nil {
			return fail("Failed to register user.", err)
		}
	}

	p.registry.Register(userID, c.ID)
	if prev := c.userID; prev != 0 && prev != userID {
		if _, online := p.registry.Lookup(prev); !online {
			p.tracker.Close(prev)
		}
	}
	c.userID = userID
	c.state = StateRegistered
	observability.SetOnlineUsers(p.registry.Len())
	p.log.Info("user registered", zap.Int("user_id", userID), zap.String("conn_id", c.ID))
	return nil
}

func (p *Protocol) openChat(ctx context.Context, c *Conn, data []byte) error {
	userID, friendID, err := decodePair(data)
	if err != nil {
		return err
	}
	if err := authorize(c, userID); err != nil {
		return err
	}

	p.tracker.Open(userID, friendID)

	// only the friend's messages become read here, markMessagesAsRead covers both directions
	if _, err := p.messages.MarkRead(ctx, friendID, userID); err != nil {
		return fail("Failed to open chat.", err)
	}
	p.emitToUsers(models.EventMessagesMarkedAsRead, models.ReadReceipt{SenderID: friendID, ReceiverID: userID}, userID, friendID)

	msgs, err := p.messages.ListBetween(ctx, userID, friendID)
	if err != nil {
		return fail("Failed to open chat.", err)
	}
	p.emitToUsers(models.EventMessagesResponse, nonNil(msgs), userID, friendID)
	p.chats.Invalidate(ctx, userID, friendID)
	return nil
}

func (p *Protocol) closeChat(c *Conn, data []byte) error {
	userID, err := decodeUserID(data)
	if err != nil {
		return err
	}
	if err := authorize(c, userID); err != nil {
		return err
	}
	p.tracker.Close(userID)
	return nil
}

func (p *Protocol) getMessages(ctx context.Context, c *Conn, data []byte) error {
	userID, friendID, err := decodePair(data)
	if err != nil {
		return err
	}
	if err := authorize(c, userID); err != nil {
		return err
	}
	msgs, err := p.messages.ListBetween(ctx, userID, friendID)
	if err != nil {
		return fail("Failed to fetch messages.", err)
	}
	p.emit(c.ID, models.EventMessagesResponse, nonNil(msgs))
	return nil
}

func (p *Protocol) sendMessage(ctx context.Context, c *Conn, data []byte) error {
	in, err := decodeSend(data)
	if err != nil {
		return err
	}
	senderID, receiverID := int(in.SenderID), int(in.ReceiverID)
	if err := authorize(c, senderID); err != nil {
		return err
	}
	if strings.TrimSpace(in.Content) == "" {
		return ErrEmptyContent
	}
	if senderID == receiverID {
		return ErrSelfMessage
	}

	isRead := p.tracker.IsViewing(receiverID, senderID)
	msg, err := p.messages.CreateMessage(ctx, senderID, receiverID, in.Content, isRead)
	if err != nil {
		return fail("Failed to send message.", err)
	}
	observability.IncMessageSent(isRead)

	p.emitToUsers(models.EventNewMessage, msg, senderID, receiverID)
	if isRead {
		p.emitToUsers(models.EventMessagesMarkedAsRead, models.ReadReceipt{SenderID: senderID, ReceiverID: receiverID}, senderID, receiverID)
	}
	p.emitToUsers(models.EventChatListUpdated, chatListUpdate(msg, senderID), senderID)
	p.emitToUsers(models.EventChatListUpdated, chatListUpdate(msg, receiverID), receiverID)
	p.chats.Invalidate(ctx, senderID, receiverID)

	p.publish(ctx, c, "message_sent", map[string]interface{}{
		"message_id":  msg.ID,
		"sender_id":   msg.SenderID,
		"receiver_id": msg.ReceiverID,
		"is_read":     msg.IsRead,
		"created_at":  msg.CreatedAt,
	})
	return nil
}

func (p *Protocol) getChatList(ctx context.Context, c *Conn, data []byte) error {
	userID, err := decodeUserID(data)
	if err != nil {
		return err
	}
	if err := authorize(c, userID); err != nil {
		return err
	}
	list, err := p.chats.ChatList(ctx, userID)
	if err != nil {
		return fail("Failed to fetch chat list.", err)
	}
	p.emit(c.ID, models.EventChatListResponse, list)
	return nil
}

func (p *Protocol) markMessagesAsRead(ctx context.Context, c *Conn, data []byte) error {
	userID, friendID, err := decodePair(data)
	if err != nil {
		return err
	}
	if err := authorize(c, userID); err != nil {
		return err
	}
	updated, err := p.messages.MarkReadBetween(ctx, userID, friendID)
	if err != nil {
		return fail("Failed to mark messages as read.", err)
	}
	p.emitToUsers(models.EventMessagesMarkedAsRead, models.ReadReceipt{SenderID: userID, ReceiverID: friendID}, userID, friendID)
	p.chats.Invalidate(ctx, userID, friendID)

	p.publish(ctx, c, "messages_read", map[string]interface{}{
		"user_id":   userID,
		"friend_id": friendID,
		"updated":   updated,
	})
	return nil
}

// Disconnect releases everything bound to c. Calling it more than once is a no-op.
func (p *Protocol) Disconnect(ctx context.Context, c *Conn) {
	if c.state == StateDisconnected {
		return
	}
	c.state = StateDisconnected

	if p.sockets != nil {
		if err := p.sockets.DeleteByConn(ctx, c.ID); err != nil {
			p.log.Warn("presence mirror delete failed", zap.String("conn_id", c.ID), zap.Error(err))
		}
	}
	if userID, ok := p.registry.Unregister(c.ID); ok {
		fields := []zap.Field{zap.Int("user_id", userID), zap.String("conn_id", c.ID)}
		if peerID, viewing := p.tracker.Peer(userID); viewing {
			fields = append(fields, zap.Int("closed_chat_with", peerID))
		}
		p.tracker.Close(userID)
		p.log.Info("user disconnected", fields...)
	}
	observability.SetOnlineUsers(p.registry.Len())
}

// authorize rejects payloads naming a user other than the one proven by the
// handshake token. Unauthenticated connections are trusted as before.
func authorize(c *Conn, userID int) error {
	if c.AuthUserID != 0 && c.AuthUserID != userID {
		return ErrIdentityMismatch
	}
	return nil
}

func (p *Protocol) emit(connID, event string, data any) {
	p.emitter.Emit(connID, models.OutboundEvent{Event: event, Data: data})
}

// emitToUsers delivers to the registered connection of each user. Offline
// users are skipped.
func (p *Protocol) emitToUsers(event string, data any, userIDs ...int) {
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		connID, ok := p.registry.Lookup(id)
		if !ok || seen[connID] {
			continue
		}
		seen[connID] = true
		p.emit(connID, event, data)
	}
}

func (p *Protocol) publish(ctx context.Context, c *Conn, name string, payload map[string]interface{}) {
	var traceID string
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	_ = observability.PublishEvent(ctx, observability.RoutingChatEvents, observability.EventEnvelope{
		EventType: "chat_events",
		EventName: name,
		Payload:   payload,
	}, observability.BuildHeaders(c.RequestID, traceID))
}

func chatListUpdate(msg models.Message, owner int) models.ChatListUpdate {
	return models.ChatListUpdate{
		UserID:               owner,
		ChatUserID:           msg.PeerOf(owner),
		LastMessageContent:   msg.Content,
		LastMessageCreatedAt: msg.CreatedAt,
		LastMessageIsRead:    msg.IsRead,
	}
}

func nonNil(msgs []models.Message) []models.Message {
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}

var knownEvents = map[string]bool{
	models.EventRegisterUser:       true,
	models.EventOpenChat:           true,
	models.EventCloseChat:          true,
	models.EventGetMessages:        true,
	models.EventSendMessage:        true,
	models.EventGetChatList:        true,
	models.EventMarkMessagesAsRead: true,
	models.EventDisconnect:         true,
}

// eventLabel bounds metric and span cardinality to known event names.
func eventLabel(event string) string {
	if knownEvents[event] {
		return event
	}
	return "unknown"
}
