package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rental-chat/internal/activechat"
	"rental-chat/internal/chatlist"
	"rental-chat/internal/models"
	"rental-chat/internal/presence"
	"rental-chat/internal/repositories"
)

// memStore is an in-memory message store that also feeds the chat list aggregator.
type memStore struct {
	mu     sync.Mutex
	msgs   []models.Message
	nextID int
	clock  time.Time
}

func newMemStore() *memStore {
	return &memStore{clock: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (s *memStore) CreateMessage(_ context.Context, senderID, receiverID int, content string, isRead bool) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.clock = s.clock.Add(time.Second)
	msg := models.Message{
		ID:         s.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		IsRead:     isRead,
		CreatedAt:  s.clock,
	}
	s.msgs = append(s.msgs, msg)
	return msg, nil
}

func (s *memStore) ListBetween(_ context.Context, userA, userB int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.msgs {
		if (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) MarkRead(_ context.Context, fromID, toID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.msgs {
		m := &s.msgs[i]
		if m.SenderID == fromID && m.ReceiverID == toID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *memStore) MarkReadBetween(ctx context.Context, userA, userB int) (int64, error) {
	a, _ := s.MarkRead(ctx, userA, userB)
	b, _ := s.MarkRead(ctx, userB, userA)
	return a + b, nil
}

func (s *memStore) ConversationHeads(_ context.Context, userID int) ([]models.ConversationHead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	heads := map[int]*models.ConversationHead{}
	var order []int
	for _, m := range s.msgs {
		if m.SenderID != userID && m.ReceiverID != userID {
			continue
		}
		peer := m.PeerOf(userID)
		h, ok := heads[peer]
		if !ok {
			h = &models.ConversationHead{PeerID: peer}
			heads[peer] = h
			order = append(order, peer)
		}
		h.Message = m
		if m.ReceiverID == userID && !m.IsRead {
			h.UnreadCount++
		}
	}
	out := make([]models.ConversationHead, 0, len(order))
	for _, peer := range order {
		out = append(out, *heads[peer])
	}
	return out, nil
}

func (s *memStore) all() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.msgs...)
}

var _ repositories.MessageRepository = (*memStore)(nil)

type staticUsers map[int]string

func (u staticUsers) UsersByIDs(_ context.Context, ids []int) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if name, ok := u[id]; ok {
			out = append(out, models.User{ID: id, Username: name})
		}
	}
	return out, nil
}

// recorder captures emitted events per connection.
type recorder struct {
	mu     sync.Mutex
	events map[string][]models.OutboundEvent
}

func newRecorder() *recorder {
	return &recorder{events: map[string][]models.OutboundEvent{}}
}

func (r *recorder) Emit(connID string, ev models.OutboundEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[connID] = append(r.events[connID], ev)
	return true
}

func (r *recorder) named(connID, name string) []models.OutboundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.OutboundEvent
	for _, ev := range r.events[connID] {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = map[string][]models.OutboundEvent{}
}

type fixture struct {
	protocol *Protocol
	store    *memStore
	rec      *recorder
	registry *presence.Registry
	tracker  *activechat.Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	users := staticUsers{1: "amira", 2: "omar", 3: "lina"}
	f := &fixture{
		store:    store,
		rec:      newRecorder(),
		registry: presence.NewRegistry(),
		tracker:  activechat.NewTracker(),
	}
	agg := chatlist.NewAggregator(store, users, nil, zap.NewNop())
	f.protocol = NewProtocol(store, agg, f.registry, f.tracker, nil, f.rec, zap.NewNop())
	return f
}

func (f *fixture) send(t *testing.T, c *Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	f.protocol.Handle(context.Background(), c, models.InboundEvent{Event: event, Data: raw})
}

func (f *fixture) connect(t *testing.T, connID string, userID int) *Conn {
	t.Helper()
	c := NewConn(connID, 0, "req-"+connID)
	f.send(t, c, models.EventRegisterUser, userID)
	require.Equal(t, StateRegistered, c.State())
	return c
}

func pair(userID, friendID int) map[string]int {
	return map[string]int{"userId": userID, "friendId": friendID}
}

func outgoing(senderID, receiverID int, content string) map[string]any {
	return map[string]any{"senderId": senderID, "receiverId": receiverID, "content": content}
}

func errorMessages(events []models.OutboundEvent) []string {
	var out []string
	for _, ev := range events {
		out = append(out, ev.Data.(models.ErrorNotice).Message)
	}
	return out
}
