package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"idsearch/pkg/platform/sentinel"
)

// DefaultMemorySize bounds the in-process cache.
const DefaultMemorySize = 10000

// MemoryStore is a bounded in-process store. Expired entries are removed on
// read or by Sweep; the least recently used entry is evicted when full.
type MemoryStore struct {
	entries *lru.Cache[string, Entry]
	now     func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the time source used for expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates a store holding at most size entries.
func NewMemoryStore(size int, opts ...MemoryOption) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	entries, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	s := &MemoryStore{entries: entries, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, error) {
	entry, ok := s.entries.Get(key)
	if !ok {
		return Entry{}, sentinel.ErrNotFound
	}
	if entry.Expired(s.now()) {
		s.entries.Remove(key)
		return Entry{}, sentinel.ErrNotFound
	}
	return entry, nil
}

func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	s.entries.Add(entry.Key, entry)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.entries.Remove(key)
	return nil
}

// Sweep removes every expired entry and reports how many were dropped.
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	now := s.now()
	removed := 0
	for _, key := range s.entries.Keys() {
		entry, ok := s.entries.Peek(key)
		if ok && entry.Expired(now) {
			s.entries.Remove(key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of entries held, expired or not.
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}
