package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"rental-chat/internal/middleware"
	"rental-chat/internal/models"
	"rental-chat/internal/repositories"
	"rental-chat/internal/telemetry"
)

// ChatLister builds chat lists and drops stale ones.
type ChatLister interface {
	ChatList(ctx context.Context, userID int) ([]models.ChatSummary, error)
	Invalidate(ctx context.Context, userIDs ...int)
}

// ChatHandler serves the stateless chat endpoints. Nothing is pushed to
// websocket clients from here.
type ChatHandler struct {
	messageRepo repositories.MessageRepository
	chats       ChatLister
	audit       *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler. audit may be nil.
func NewChatHandler(messageRepo repositories.MessageRepository, chats ChatLister, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		messageRepo: messageRepo,
		chats:       chats,
		audit:       audit,
	}
}

// RegisterRoutes mounts the handler on group.
func (h *ChatHandler) RegisterRoutes(group gin.IRoutes) {
	group.GET("/messages/:userId/:friendId", h.GetMessages)
	group.POST("/messages", h.SendMessage)
	group.GET("/chatList/:userId", h.GetChatList)
	group.PATCH("/messages/read/:userId/:chatUserId", h.MarkMessagesAsRead)
}

// GetMessages returns the conversation between two users, oldest first.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, ok := pathUserID(c, "userId")
	if !ok {
		return
	}
	friendID, ok := pathUserID(c, "friendId")
	if !ok || !ownsResource(c, userID) {
		return
	}

	messages, err := h.messageRepo.ListBetween(c.Request.Context(), userID, friendID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages."})
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type sendMessageRequest struct {
	SenderID   int    `json:"senderId" binding:"required"`
	ReceiverID int    `json:"receiverId" binding:"required"`
	Content    string `json:"content" binding:"required"`
}

// SendMessage stores a message. Recipients see it on their next fetch.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}
	if req.SenderID == req.ReceiverID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot send a message to yourself"})
		return
	}
	if !ownsResource(c, req.SenderID) {
		return
	}

	ctx := c.Request.Context()
	msg, err := h.messageRepo.CreateMessage(ctx, req.SenderID, req.ReceiverID, req.Content, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message."})
		return
	}
	h.chats.Invalidate(ctx, req.SenderID, req.ReceiverID)
	h.audit.Emit(ctx, "INFO", "message sent over http", requestIDFromContext(c), req.SenderID)

	c.JSON(http.StatusCreated, gin.H{"message": "Message sent", "data": msg})
}

// GetChatList returns the user's conversations, most recent first.
func (h *ChatHandler) GetChatList(c *gin.Context) {
	userID, ok := pathUserID(c, "userId")
	if !ok || !ownsResource(c, userID) {
		return
	}

	chats, err := h.chats.ChatList(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chat list."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// MarkMessagesAsRead marks messages in both directions between the pair as read.
func (h *ChatHandler) MarkMessagesAsRead(c *gin.Context) {
	userID, ok := pathUserID(c, "userId")
	if !ok {
		return
	}
	chatUserID, ok := pathUserID(c, "chatUserId")
	if !ok || !ownsResource(c, userID) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.messageRepo.MarkReadBetween(ctx, userID, chatUserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark messages as read."})
		return
	}
	h.chats.Invalidate(ctx, userID, chatUserID)
	c.JSON(http.StatusOK, gin.H{"message": "Messages marked as read."})
}

func pathUserID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// ownsResource rejects requests acting for another user when the caller is
// authenticated.
func ownsResource(c *gin.Context, userID int) bool {
	if authID := c.GetInt(middleware.UserIDKey); authID != 0 && authID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}
