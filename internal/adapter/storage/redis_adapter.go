package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	requestKeyPrefix  = "warehouse:request:"
	idempotencyKeyTTL = 24 * time.Hour
)

// RedisAdapter remembers client request ids so a resubmitted form is not
// applied twice.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, requestKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, requestKeyPrefix+key).Err()
}
