package chatlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"rental-chat/internal/models"
)

// RedisCache keeps serialized chat lists in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a cache storing keys as prefix+userID.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(userID int) string {
	return c.prefix + strconv.Itoa(userID)
}

// Get returns the cached list and whether it was present.
func (c *RedisCache) Get(ctx context.Context, userID int) ([]models.ChatSummary, bool, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var list []models.ChatSummary
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, false, fmt.Errorf("cache unmarshal: %w", err)
	}
	return list, true, nil
}

// Set stores the list with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, userID int, list []models.ChatSummary) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.key(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes the lists of the given users.
func (c *RedisCache) Delete(ctx context.Context, userIDs ...int) error {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, c.key(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
