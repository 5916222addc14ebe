package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"restapidemo/internal/users/models"
	"restapidemo/pkg/domain"
)

const cacheKeyPrefix = "users:id:"

// DefaultCacheTTL bounds how long a cached user may lag behind the store
// when a write bypasses this process.
const DefaultCacheTTL = 5 * time.Minute

// RedisCache is a read-through cache in front of another Store. Lookups by
// id are cached; writes go to the wrapped store first and then drop the
// cached entry. Redis failures are logged and never fail a request.
type RedisCache struct {
	next   Store
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(next Store, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{next: next, client: client, ttl: ttl, logger: logger}
}

func cacheKey(id domain.UserID) string {
	return cacheKeyPrefix + id.String()
}

func (c *RedisCache) Create(ctx context.Context, user *models.User) error {
	return c.next.Create(ctx, user)
}

func (c *RedisCache) Update(ctx context.Context, user *models.User) error {
	if err := c.next.Update(ctx, user); err != nil {
		return err
	}
	c.invalidate(ctx, user.ID)
	return nil
}

func (c *RedisCache) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	key := cacheKey(id)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var user models.User
		if jsonErr := json.Unmarshal(raw, &user); jsonErr == nil {
			return &user, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached user", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "user cache read failed", "key", key, "error", err)
	}

	user, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "user cache write failed", "key", key, "error", err)
		}
	}
	return user, nil
}

func (c *RedisCache) List(ctx context.Context) ([]*models.User, error) {
	return c.next.List(ctx)
}

func (c *RedisCache) Delete(ctx context.Context, id domain.UserID) error {
	if err := c.next.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *RedisCache) invalidate(ctx context.Context, id domain.UserID) {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		c.logger.WarnContext(ctx, "user cache invalidation failed", "key", cacheKey(id), "error", err)
	}
}
