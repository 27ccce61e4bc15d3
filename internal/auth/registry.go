package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/alias/internal/alias"
)

// Registry remembers live refresh token ids.
type Registry interface {
	Save(ctx context.Context, jti, userID string, ttl time.Duration) error
	// Consume removes jti. It returns alias.ErrNotFound when the id is not
	// live.
	Consume(ctx context.Context, jti string) error
}

type tokenStore interface {
	SaveRefreshToken(ctx context.Context, id, userID string, ttl time.Duration) error
	ConsumeRefreshToken(ctx context.Context, id string) error
}

// StoreRegistry keeps refresh token ids in the document store.
type StoreRegistry struct {
	store tokenStore
}

func NewStoreRegistry(s tokenStore) *StoreRegistry {
	return &StoreRegistry{store: s}
}

func (r *StoreRegistry) Save(ctx context.Context, jti, userID string, ttl time.Duration) error {
	return r.store.SaveRefreshToken(ctx, jti, userID, ttl)
}

func (r *StoreRegistry) Consume(ctx context.Context, jti string) error {
	return r.store.ConsumeRefreshToken(ctx, jti)
}

const refreshKeyPrefix = "alias:refresh:"

// RedisRegistry keeps refresh token ids in Redis and lets key expiry drop
// stale ones.
type RedisRegistry struct {
	rdb *redis.Client
}

func NewRedisRegistry(rdb *redis.Client) *RedisRegistry {
	return &RedisRegistry{rdb: rdb}
}

func (r *RedisRegistry) Save(ctx context.Context, jti, userID string, ttl time.Duration) error {
	return r.rdb.Set(ctx, refreshKeyPrefix+jti, userID, ttl).Err()
}

func (r *RedisRegistry) Consume(ctx context.Context, jti string) error {
	n, err := r.rdb.Del(ctx, refreshKeyPrefix+jti).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return alias.ErrNotFound
	}
	return nil
}
