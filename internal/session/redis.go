package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix — префикс ключей сессии по умолчанию.
const DefaultRedisPrefix = "mydata:session:"

// RedisStore — хранилище сессии в Redis; удобно, когда несколько
// процессов CLI на одной машине должны видеть одну сессию.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется DefaultRedisPrefix.
func NewRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	const op = "session/NewRedisStore"

	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &RedisStore{rdb: rdb, prefix: prefix}, nil
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("session/RedisStore.Get: %w", err)
	}

	return v, true, nil
}

// Set пишет значение без TTL: сессия живёт до явного выхода.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("session/RedisStore.Set: %w", err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}

	if err := s.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("session/RedisStore.Delete: %w", err)
	}

	return nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
