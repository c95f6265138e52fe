package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Store keeps JSON values in Redis. Redis is only a shortcut: callers treat
// every error as a miss and fall back to Postgres.
type Store struct{ R redis.Cmdable }

func (s Store) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	b, err := s.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.R.Set(ctx, key, b, ttl).Err()
}

func (s Store) Del(ctx context.Context, keys ...string) error {
	return s.R.Del(ctx, keys...).Err()
}

func (s Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.R.Exists(ctx, key).Result()
	return n > 0, err
}

// Mark records key for ttl. It reports false when the key was already set.
func (s Store) Mark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.R.SetNX(ctx, key, "1", ttl).Result()
}
