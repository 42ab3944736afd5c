package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"idsearch/pkg/platform/sentinel"
)

const defaultKeyPrefix = "idsearch:search:"

// RedisStore shares entries across instances. Redis key expiry mirrors
// ExpiresAt, so no sweep is needed.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces the keys written by the store.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisClock overrides the time source used to compute key TTLs.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		s.now = now
	}
}

// NewRedisStore constructs a Redis-backed store. The client lifecycle is
// managed by the caller.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("redis get: %w: %w", sentinel.ErrUnavailable, err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A payload we cannot read is dropped so the next search recomputes it
		_ = s.client.Del(ctx, s.prefix+key).Err()
		return Entry{}, sentinel.ErrNotFound
	}
	if entry.Expired(s.now()) {
		return Entry{}, sentinel.ErrNotFound
	}
	return entry, nil
}

// Put writes entry with SET and a TTL matching its expiry. Entries already
// expired are not written.
func (s *RedisStore) Put(ctx context.Context, entry Entry) error {
	ttl := entry.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+entry.Key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

// Health pings the backing Redis.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
