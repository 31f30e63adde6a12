package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

type redisKVRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisKVRepository keeps entries as plain redis strings under prefix, without expiry
func NewRedisKVRepository(client *redis.Client, prefix string) KVRepository {
	return &redisKVRepository{client: client, prefix: prefix}
}

func (r *redisKVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *redisKVRepository) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *redisKVRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, r.prefix+k)
	}
	return r.client.Del(ctx, prefixed...).Err()
}
