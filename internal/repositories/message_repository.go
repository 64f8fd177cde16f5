package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"rental-chat/internal/models"
)

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, senderID, receiverID int, content string, isRead bool) (models.Message, error)
	ListBetween(ctx context.Context, userA, userB int) ([]models.Message, error)
	MarkRead(ctx context.Context, fromID, toID int) (int64, error)
	MarkReadBetween(ctx context.Context, userA, userB int) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, sender_id, receiver_id, content, is_read, created_at`

// CreateMessage appends a message and returns the stored row.
func (r *MessageRepo) CreateMessage(ctx context.Context, senderID, receiverID int, content string, isRead bool) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (sender_id, receiver_id, content, is_read) VALUES ($1, $2, $3, $4) RETURNING `+messageColumns,
		senderID, receiverID, content, isRead).StructScan(&msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListBetween returns the conversation between two users, oldest first.
func (r *MessageRepo) ListBetween(ctx context.Context, userA, userB int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + `
        FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY created_at ASC, id ASC`
	msgs := []models.Message{}
	if err := r.db.SelectContext(ctx, &msgs, query, userA, userB); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// MarkRead flags the unread messages sent by fromID to toID. The reverse
// direction is left untouched.
func (r *MessageRepo) MarkRead(ctx context.Context, fromID, toID int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read = TRUE WHERE sender_id=$1 AND receiver_id=$2 AND is_read = FALSE`, fromID, toID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return res.RowsAffected()
}

// MarkReadBetween flags every unread message between the two users, in both directions.
func (r *MessageRepo) MarkReadBetween(ctx context.Context, userA, userB int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read = TRUE
        WHERE ((sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)) AND is_read = FALSE`, userA, userB)
	if err != nil {
		return 0, fmt.Errorf("mark read between: %w", err)
	}
	return res.RowsAffected()
}

// ConversationHeads returns, per peer of userID, the most recent message of
// the pair (ties broken by highest id) and the count of unread messages
// addressed to userID.
func (r *MessageRepo) ConversationHeads(ctx context.Context, userID int) ([]models.ConversationHead, error) {
	query := `WITH pair AS (
            SELECT ` + messageColumns + `,
                CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS peer_id
            FROM messages
            WHERE sender_id = $1 OR receiver_id = $1
        ), latest AS (
            SELECT DISTINCT ON (peer_id) peer_id, ` + messageColumns + `
            FROM pair
            ORDER BY peer_id, created_at DESC, id DESC
        ), unread AS (
            SELECT sender_id AS peer_id, COUNT(*) AS unread_count
            FROM messages
            WHERE receiver_id = $1 AND is_read = FALSE
            GROUP BY sender_id
        )
        SELECT l.peer_id, l.id, l.sender_id, l.receiver_id, l.content, l.is_read, l.created_at,
            COALESCE(u.unread_count, 0) AS unread_count
        FROM latest l
        LEFT JOIN unread u ON u.peer_id = l.peer_id`
	heads := []models.ConversationHead{}
	if err := r.db.SelectContext(ctx, &heads, query, userID); err != nil {
		return nil, fmt.Errorf("conversation heads: %w", err)
	}
	return heads, nil
}
