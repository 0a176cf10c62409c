package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"volunteerhub/api/internal/models"
)

const userKeyPrefix = "user:"

// UserCache keeps the last known public projection of users keyed by id. The
// access guard falls back to it while the database is unreachable. Password
// hashes never reach it.
type UserCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewUserCache(client *redis.Client, ttl time.Duration) *UserCache {
	return &UserCache{client: client, ttl: ttl}
}

func (c *UserCache) Get(ctx context.Context, id string) (models.User, bool, error) {
	raw, err := c.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.User{}, false, nil
		}
		return models.User{}, false, fmt.Errorf("redis get: %w", err)
	}

	user, err := decodeUser(raw)
	if err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}

func (c *UserCache) Set(ctx context.Context, user models.User) error {
	raw, err := encodeUser(user)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, userKey(user.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *UserCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, userKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func encodeUser(user models.User) ([]byte, error) {
	raw, err := json.Marshal(user.Public())
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}
	return raw, nil
}

func decodeUser(raw []byte) (models.User, error) {
	var public models.PublicUser
	if err := json.Unmarshal(raw, &public); err != nil {
		return models.User{}, fmt.Errorf("decode user: %w", err)
	}
	return public.User(), nil
}
