// Package cache holds recently computed search outcomes keyed by normalized
// query.
package cache

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"time"

	"idsearch/internal/lookup/models"
)

// DefaultTTL is how long an outcome stays live when no TTL is configured.
const DefaultTTL = 30 * time.Minute

// Entry is the persisted cache shape.
type Entry struct {
	Key       string         `json:"key"`
	Payload   models.Outcome `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// NewEntry stamps payload with its creation and expiry times.
func NewEntry(key string, payload models.Outcome, now time.Time, ttl time.Duration) Entry {
	return Entry{
		Key:       key,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the entry is no longer live at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store persists entries. Get returns sentinel.ErrNotFound for a missing or
// expired key; any other error means the store itself is unhealthy.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, key string) error
}

// Sweepable stores can drop expired entries in bulk.
type Sweepable interface {
	Sweep(ctx context.Context) (int, error)
}
