package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SocketRepository mirrors the in-memory presence registry to the database.
type SocketRepository interface {
	Upsert(ctx context.Context, userID int, connID string) error
	DeleteByConn(ctx context.Context, connID string) error
	Reset(ctx context.Context) error
}

// SocketRepo is the sqlx implementation of SocketRepository.
type SocketRepo struct {
	db *sqlx.DB
}

// NewSocketRepo constructs SocketRepo.
func NewSocketRepo(db *sqlx.DB) *SocketRepo {
	return &SocketRepo{db: db}
}

// Upsert binds connID to userID, replacing any user previously bound to the connection.
func (r *SocketRepo) Upsert(ctx context.Context, userID int, connID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO user_sockets (socket_id, user_id) VALUES ($1, $2)
        ON CONFLICT (socket_id) DO UPDATE SET user_id = EXCLUDED.user_id, connected_at = NOW()`, connID, userID)
	if err != nil {
		return fmt.Errorf("upsert socket: %w", err)
	}
	return nil
}

// DeleteByConn drops the row for connID. Missing rows are not an error.
func (r *SocketRepo) DeleteByConn(ctx context.Context, connID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_sockets WHERE socket_id=$1`, connID); err != nil {
		return fmt.Errorf("delete socket: %w", err)
	}
	return nil
}

// Reset clears rows left behind by a previous process.
func (r *SocketRepo) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_sockets`); err != nil {
		return fmt.Errorf("reset sockets: %w", err)
	}
	return nil
}
