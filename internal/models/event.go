package models

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Events sent by clients.
const (
	EventRegisterUser       = "registerUser"
	EventOpenChat           = "openChat"
	EventCloseChat          = "closeChat"
	EventGetMessages        = "getMessages"
	EventSendMessage        = "sendMessage"
	EventGetChatList        = "getChatList"
	EventMarkMessagesAsRead = "markMessagesAsRead"
	EventDisconnect         = "disconnect"
)

// Events pushed by the server.
const (
	EventMessagesResponse     = "messagesResponse"
	EventNewMessage           = "newMessage"
	EventMessagesMarkedAsRead = "messagesMarkedAsRead"
	EventChatListUpdated      = "chatListUpdated"
	EventChatListResponse     = "chatListResponse"
	EventError                = "error"
)

// InboundEvent is a frame received from a websocket client.
type InboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundEvent is a frame pushed to a websocket client.
type OutboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ErrorNotice is the payload of an error event.
type ErrorNotice struct {
	Message string `json:"message"`
}

// UserID accepts both JSON numbers and numeric strings.
type UserID int

var errInvalidUserID = errors.New("invalid user id")

func (u *UserID) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return errInvalidUserID
	}
	*u = UserID(id)
	return nil
}

// PairPayload is used by openChat, getMessages and markMessagesAsRead.
type PairPayload struct {
	UserID   UserID `json:"userId"`
	FriendID UserID `json:"friendId"`
}

// SendMessagePayload is the body of a sendMessage event.
type SendMessagePayload struct {
	SenderID   UserID `json:"senderId"`
	ReceiverID UserID `json:"receiverId"`
	Content    string `json:"content"`
}
