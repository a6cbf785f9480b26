// AngelaMos | 2026
// storage_redis.go

package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "backoffice:session:"

// RedisStorage keeps the profile's session fields in a single hash, so one
// HSET writes all of them atomically.
type RedisStorage struct {
	client *redis.Client
	key    string
}

func NewRedisStorage(client *redis.Client, profile string) *RedisStorage {
	return &RedisStorage{
		client: client,
		key:    redisKeyPrefix + profile,
	}
}

func (r *RedisStorage) Load(
	ctx context.Context,
	keys ...string,
) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := r.client.HMGet(ctx, r.key, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load session hash: %w", err)
	}

	for i, v := range values {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

func (r *RedisStorage) Save(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = v
	}

	if err := r.client.HSet(ctx, r.key, fields).Err(); err != nil {
		return fmt.Errorf("save session hash: %w", err)
	}
	return nil
}

func (r *RedisStorage) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.HDel(ctx, r.key, keys...).Err(); err != nil {
		return fmt.Errorf("remove session fields: %w", err)
	}
	return nil
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
