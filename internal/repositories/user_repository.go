package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"rental-chat/internal/models"
)

// UserRepo reads user profiles from the shared users table.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// UsersByIDs fetches the profiles of the given users. Unknown ids are omitted.
func (r *UserRepo) UsersByIDs(ctx context.Context, ids []int) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, username, COALESCE(image, '') AS image FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build users query: %w", err)
	}
	users := []models.User{}
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}
