package store

import (
	"context"
	"errors"
	"fmt"

	redislib "github.com/redis/go-redis/v9"

	"clix/internal/redis"
)

// RedisBackend keeps each slot as a plain string key. This is the primary
// backend: Redis is the one shared resource every context process can reach,
// which makes it the natural stand-in for the device-local database.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps the shared Redis client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Load(ctx context.Context, slot string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, slot).Bytes()
	if errors.Is(err, redislib.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get slot %s: %w", slot, err)
	}
	return data, true, nil
}

func (b *RedisBackend) Save(ctx context.Context, slot string, data []byte) error {
	if err := b.client.Set(ctx, slot, data, 0).Err(); err != nil {
		return fmt.Errorf("set slot %s: %w", slot, err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, slot string) error {
	if err := b.client.Del(ctx, slot).Err(); err != nil {
		return fmt.Errorf("del slot %s: %w", slot, err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
