package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no refresh token is stored for the user.
var ErrNotFound = errors.New("session not found")

const TTL = 7 * 24 * time.Hour

// Cache keeps the single live refresh token per user. Put overwrites any
// previous entry, which is what revokes a session opened elsewhere.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{Client: client, TTL: TTL}
}

func (c *Cache) Put(ctx context.Context, userID uint, refreshToken string) error {
	if err := c.Client.Set(ctx, key(userID), refreshToken, c.TTL).Err(); err != nil {
		return fmt.Errorf("session put: %w", err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, userID uint) (string, error) {
	val, err := c.Client.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session get: %w", err)
	}
	return val, nil
}

func (c *Cache) Delete(ctx context.Context, userID uint) error {
	if err := c.Client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

func key(userID uint) string {
	return fmt.Sprintf("refresh_token:%d", userID)
}
