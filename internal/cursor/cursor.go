// Package cursor tracks the last successfully analyzed source
// timestamp per external system, so repeated sweeps fetch incremental
// windows instead of re-reading full pages.
package cursor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists per-system sync cursors. A missing cursor is not an
// error: Get returns a zero time and the caller fetches from the
// beginning of the source's window.
type Store interface {
	Get(ctx context.Context, systemID string) (time.Time, error)
	Set(ctx context.Context, systemID string, at time.Time) error
}

// RedisStore implements Store on Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a cursor store. ttl bounds how long a cursor
// survives without updates; 0 means no expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(systemID string) string {
	return "wardwatch:cursor:" + systemID
}

// Get returns the stored cursor for a system, or a zero time when no
// cursor exists yet.
func (s *RedisStore) Get(ctx context.Context, systemID string) (time.Time, error) {
	val, err := s.client.Get(ctx, s.key(systemID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get cursor: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored cursor is malformed: %w", err)
	}
	return t, nil
}

// Set stores the cursor for a system.
func (s *RedisStore) Set(ctx context.Context, systemID string, at time.Time) error {
	if err := s.client.Set(ctx, s.key(systemID), at.UTC().Format(time.RFC3339Nano), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cursor: %w", err)
	}
	return nil
}

// NoopStore is a Store that never remembers anything; sweeps always
// fetch the full page. Used when Redis is disabled.
type NoopStore struct{}

func (NoopStore) Get(ctx context.Context, systemID string) (time.Time, error) {
	return time.Time{}, nil
}

func (NoopStore) Set(ctx context.Context, systemID string, at time.Time) error {
	return nil
}
