// Package redis implements the session cache protocol over a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sajera/apikit/internal/store/session"
)

// keyPrefix namespaces session records so the same Redis instance can be
// shared with other data.
const keyPrefix = "session:"

type Store struct {
	client *redis.Client
}

// NewStore connects to the Redis instance described by url
// (redis://[user:pass@]host:port/db).
func NewStore(url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	return &Store{client: redis.NewClient(opts)}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", session.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis: get: %w", err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}

func (s *Store) Del(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Del(ctx, keyPrefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: del: %w", err)
	}
	return count, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
