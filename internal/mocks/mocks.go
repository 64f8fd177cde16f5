package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rental-chat/internal/models"
	"rental-chat/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, senderID, receiverID int, content string, isRead bool) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, content, isRead)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListBetween(ctx context.Context, userA, userB int) ([]models.Message, error) {
	args := m.Called(ctx, userA, userB)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, fromID, toID int) (int64, error) {
	args := m.Called(ctx, fromID, toID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) MarkReadBetween(ctx context.Context, userA, userB int) (int64, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(int64), args.Error(1)
}

type ConversationSourceMock struct {
	mock.Mock
}

func (m *ConversationSourceMock) ConversationHeads(ctx context.Context, userID int) ([]models.ConversationHead, error) {
	args := m.Called(ctx, userID)
	var heads []models.ConversationHead
	if val := args.Get(0); val != nil {
		heads = val.([]models.ConversationHead)
	}
	return heads, args.Error(1)
}

type UserDirectoryMock struct {
	mock.Mock
}

func (m *UserDirectoryMock) UsersByIDs(ctx context.Context, ids []int) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type SocketRepositoryMock struct {
	mock.Mock
}

func (m *SocketRepositoryMock) Upsert(ctx context.Context, userID int, connID string) error {
	args := m.Called(ctx, userID, connID)
	return args.Error(0)
}

func (m *SocketRepositoryMock) DeleteByConn(ctx context.Context, connID string) error {
	args := m.Called(ctx, connID)
	return args.Error(0)
}

func (m *SocketRepositoryMock) Reset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type ChatListCacheMock struct {
	mock.Mock
}

func (m *ChatListCacheMock) Get(ctx context.Context, userID int) ([]models.ChatSummary, bool, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Bool(1), args.Error(2)
}

func (m *ChatListCacheMock) Set(ctx context.Context, userID int, list []models.ChatSummary) error {
	args := m.Called(ctx, userID, list)
	return args.Error(0)
}

func (m *ChatListCacheMock) Delete(ctx context.Context, userIDs ...int) error {
	args := m.Called(ctx, userIDs)
	return args.Error(0)
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.SocketRepository = (*SocketRepositoryMock)(nil)
var _ interface {
	ConversationHeads(context.Context, int) ([]models.ConversationHead, error)
} = (*ConversationSourceMock)(nil)
var _ interface {
	UsersByIDs(context.Context, []int) ([]models.User, error)
} = (*UserDirectoryMock)(nil)

type ChatListerMock struct {
	mock.Mock
}

func (m *ChatListerMock) ChatList(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

func (m *ChatListerMock) Invalidate(ctx context.Context, userIDs ...int) {
	m.Called(ctx, userIDs)
}
