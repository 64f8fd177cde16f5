package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rental-chat/internal/middleware"
	"rental-chat/internal/mocks"
	"rental-chat/internal/models"
	"rental-chat/internal/presence"
	"rental-chat/internal/telemetry"
)

func setupChatRouter(handler *ChatHandler, authUserID int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if authUserID != 0 {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.UserIDKey, authUserID)
			c.Next()
		})
	}
	handler.RegisterRoutes(r.Group("/api/chat"))
	return r
}

func TestGetMessagesSuccess(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(NewChatHandler(messageRepo, new(mocks.ChatListerMock), nil), 0)

	messageRepo.On("ListBetween", mock.Anything, 1, 2).Return([]models.Message{
		{ID: 1, SenderID: 1, ReceiverID: 2, Content: "hi"},
		{ID: 2, SenderID: 2, ReceiverID: 1, Content: "hey"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/chat/messages/1/2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "hey", resp.Messages[1].Content)
	messageRepo.AssertExpectations(t)
}

func TestGetMessagesEmptyIsArray(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(NewChatHandler(messageRepo, new(mocks.ChatListerMock), nil), 0)

	messageRepo.On("ListBetween", mock.Anything, 1, 2).Return(nil, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/messages/1/2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"messages":[]}`, rec.Body.String())
}

func TestGetMessagesInvalidID(t *testing.T) {
	router := setupChatRouter(NewChatHandler(new(mocks.MessageRepositoryMock), new(mocks.ChatListerMock), nil), 0)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/messages/abc/2", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid userId"}`, rec.Body.String())
}

func TestGetMessagesRepoError(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(NewChatHandler(messageRepo, new(mocks.ChatListerMock), nil), 0)

	messageRepo.On("ListBetween", mock.Anything, 1, 2).Return(nil, assert.AnError).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/messages/1/2", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestGetMessagesForbiddenForOtherUser(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(NewChatHandler(messageRepo, new(mocks.ChatListerMock), nil), 3)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/messages/1/2", nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertNotCalled(t, "ListBetween", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageSuccess(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	chats := new(mocks.ChatListerMock)
	publisher := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(publisher, "audit.chat", "rental-chat", "test", zap.NewNop())
	router := setupChatRouter(NewChatHandler(messageRepo, chats, audit), 0)

	created := models.Message{ID: 10, SenderID: 1, ReceiverID: 2, Content: "hello", CreatedAt: time.Now().UTC()}
	messageRepo.On("CreateMessage", mock.Anything, 1, 2, "hello", false).Return(created, nil).Once()
	chats.On("Invalidate", mock.Anything, []int{1, 2}).Once()
	publisher.On("Publish", mock.Anything, "audit.chat", mock.Anything, mock.Anything).Return(nil).Once()

	body := bytes.NewBufferString(`{"senderId":1,"receiverId":2,"content":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Message string         `json:"message"`
		Data    models.Message `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Message sent", resp.Message)
	assert.Equal(t, 10, resp.Data.ID)
	messageRepo.AssertExpectations(t)
	chats.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestSendMessageValidation(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(NewChatHandler(messageRepo, new(mocks.ChatListerMock), nil), 0)

	cases := map[string]string{
		"missing content": `{"senderId":1,"receiverId":2}`,
		"blank content":   `{"senderId":1,"receiverId":2,"content":"  "}`,
		"self message":    `{"senderId":1,"receiverId":1,"content":"me"}`,
		"malformed":       `{"senderId":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageRepoError(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	chats := new(mocks.ChatListerMock)
	router := setupChatRouter(NewChatHandler(messageRepo, chats, nil), 0)

	messageRepo.On("CreateMessage", mock.Anything, 1, 2, "hello", false).Return(nil, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", bytes.NewBufferString(`{"senderId":1,"receiverId":2,"content":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to send message."}`, rec.Body.String())
	chats.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestGetChatListSuccess(t *testing.T) {
	chats := new(mocks.ChatListerMock)
	router := setupChatRouter(NewChatHandler(new(mocks.MessageRepositoryMock), chats, nil), 1)

	chats.On("ChatList", mock.Anything, 1).Return([]models.ChatSummary{{PeerID: 2, PeerUsername: "omar", UnreadCount: 3}}, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/chatList/1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chats []map[string]any `json:"chats"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Chats, 1)
	assert.EqualValues(t, 2, resp.Chats[0]["chatUserId"])
	assert.Equal(t, "omar", resp.Chats[0]["username"])
	assert.EqualValues(t, 3, resp.Chats[0]["unreadCount"])
	chats.AssertExpectations(t)
}

func TestGetChatListError(t *testing.T) {
	chats := new(mocks.ChatListerMock)
	router := setupChatRouter(NewChatHandler(new(mocks.MessageRepositoryMock), chats, nil), 0)

	chats.On("ChatList", mock.Anything, 1).Return(nil, assert.AnError).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/chatList/1", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMarkMessagesAsReadSuccess(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	chats := new(mocks.ChatListerMock)
	router := setupChatRouter(NewChatHandler(messageRepo, chats, nil), 0)

	messageRepo.On("MarkReadBetween", mock.Anything, 1, 2).Return(int64(4), nil).Once()
	chats.On("Invalidate", mock.Anything, []int{1, 2}).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/chat/messages/read/1/2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Messages marked as read."}`, rec.Body.String())
	messageRepo.AssertExpectations(t)
	chats.AssertExpectations(t)
}

func TestMarkMessagesAsReadError(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(NewChatHandler(messageRepo, new(mocks.ChatListerMock), nil), 0)

	messageRepo.On("MarkReadBetween", mock.Anything, 1, 2).Return(int64(0), assert.AnError).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/chat/messages/read/1/2", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to mark messages as read."}`, rec.Body.String())
}

func TestDebugAuditRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	publisher := new(mocks.PublisherMock)
	audit := telemetry.NewAuditEmitter(publisher, "audit.chat", "rental-chat", "test", zap.NewNop())

	r := gin.New()
	RegisterDebugRoutes(r, audit, presence.NewRegistry(), true)
	publisher.On("Publish", mock.Anything, "audit.chat", mock.MatchedBy(func(env telemetry.AuditEnvelope) bool {
		return env.Payload.Text == "chat audit pipeline check" && env.UserID != nil && *env.UserID == "7"
	}), mock.MatchedBy(func(h map[string]string) bool {
		return h["x-request-id"] == "req-1"
	})).Return(nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil)
	req.Header.Set("X-Request-Id", "req-1")
	req.Header.Set("X-User-ID", "7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	publisher.AssertExpectations(t)

	disabled := gin.New()
	RegisterDebugRoutes(disabled, audit, presence.NewRegistry(), false)
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugPresenceRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := presence.NewRegistry()
	registry.Register(7, "conn-7")

	r := gin.New()
	RegisterDebugRoutes(r, nil, registry, true)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/presence", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"online_users":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/presence/7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":7,"online":true,"conn_id":"conn-7"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/presence/8", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":8,"online":false,"conn_id":""}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/presence/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/audit-test", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
