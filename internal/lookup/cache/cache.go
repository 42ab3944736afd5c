package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"idsearch/internal/lookup/metrics"
	"idsearch/internal/lookup/models"
	"idsearch/pkg/platform/sentinel"
)

// Cache is the result cache the search facade talks to. Store failures are
// logged and turned into misses or skipped writes so a broken backend never
// fails a search.
type Cache struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New wraps store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the live outcome for key. Expired entries are a miss and are
// removed.
func (c *Cache) Get(ctx context.Context, key string) (models.Outcome, bool) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			c.metrics.RecordCacheError()
			c.logger.WarnContext(ctx, "cache read failed, treating as miss", "key", key, "error", err)
			return models.Outcome{}, false
		}
		c.metrics.RecordCacheMiss()
		return models.Outcome{}, false
	}

	if entry.Expired(c.now()) {
		c.metrics.RecordCacheMiss()
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.DebugContext(ctx, "failed to remove expired cache entry", "key", key, "error", err)
		}
		return models.Outcome{}, false
	}

	c.metrics.RecordCacheHit()
	return entry.Payload, true
}

// Put stores outcome under key for ttl, replacing any existing entry. A
// non-positive ttl uses DefaultTTL.
func (c *Cache) Put(ctx context.Context, key string, outcome models.Outcome, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := c.store.Put(ctx, NewEntry(key, outcome, c.now(), ttl)); err != nil {
		c.metrics.RecordCacheError()
		c.logger.WarnContext(ctx, "cache write skipped", "key", key, "error", err)
	}
}

// Delete invalidates key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}
