package models

import "time"

// Message is a direct message between two users.
type Message struct {
	ID         int       `db:"id" json:"id"`
	SenderID   int       `db:"sender_id" json:"senderId"`
	ReceiverID int       `db:"receiver_id" json:"receiverId"`
	Content    string    `db:"content" json:"content"`
	IsRead     bool      `db:"is_read" json:"isRead"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// PeerOf returns the other party of the message as seen by userID.
func (m Message) PeerOf(userID int) int {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// ConversationHead is the latest message exchanged with a peer plus the
// number of messages from that peer the user has not read yet.
type ConversationHead struct {
	Message
	PeerID      int `db:"peer_id"`
	UnreadCount int `db:"unread_count"`
}

// ChatSummary is one row of a user's chat list.
type ChatSummary struct {
	PeerID               int       `json:"chatUserId"`
	PeerUsername         string    `json:"username"`
	PeerImage            string    `json:"image"`
	LastMessageID        int       `json:"lastMessageId"`
	LastMessageContent   string    `json:"lastMessageContent"`
	LastMessageCreatedAt time.Time `json:"lastMessageCreatedAt"`
	LastMessageIsRead    bool      `json:"lastMessageIsRead"`
	UnreadCount          int       `json:"unreadCount"`
}

// ReadReceipt tells clients that messages from SenderID to ReceiverID were read.
type ReadReceipt struct {
	SenderID   int `json:"senderId"`
	ReceiverID int `json:"receiverId"`
}

// ChatListUpdate is pushed to each party after a message is sent.
type ChatListUpdate struct {
	UserID               int       `json:"userId"`
	ChatUserID           int       `json:"chatUserId"`
	LastMessageContent   string    `json:"lastMessageContent"`
	LastMessageCreatedAt time.Time `json:"lastMessageCreatedAt"`
	LastMessageIsRead    bool      `json:"lastMessageIsRead"`
}
