package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"idsearch/internal/lookup/metrics"
	"idsearch/pkg/platform/sentinel"
)

// maxPendingDeletes bounds the deletes queued while the primary is down.
const maxPendingDeletes = 1024

// FallbackStore reads and writes a shared primary store and keeps a local
// fallback warm. After repeated primary errors it serves from the fallback
// until probes show the primary has recovered. Deletes the primary missed are
// replayed before it is used again.
type FallbackStore struct {
	primary  Store
	fallback Store
	breaker  *circuitBreaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]struct{}
}

// FallbackOption configures a FallbackStore.
type FallbackOption func(*FallbackStore)

// WithFallbackLogger sets the logger.
func WithFallbackLogger(logger *slog.Logger) FallbackOption {
	return func(s *FallbackStore) {
		s.logger = logger
	}
}

// WithFallbackMetrics sets the metrics sink for the degraded gauge.
func WithFallbackMetrics(m *metrics.Metrics) FallbackOption {
	return func(s *FallbackStore) {
		s.metrics = m
	}
}

// WithBreaker tunes the circuit breaker.
func WithBreaker(failureThreshold, successThreshold int, probeInterval time.Duration) FallbackOption {
	return func(s *FallbackStore) {
		s.breaker = newCircuitBreaker(failureThreshold, successThreshold, probeInterval)
	}
}

// WithFallbackClock overrides the time source used for probe pacing.
func WithFallbackClock(now func() time.Time) FallbackOption {
	return func(s *FallbackStore) {
		s.now = now
	}
}

// NewFallbackStore combines primary and fallback.
func NewFallbackStore(primary, fallback Store, opts ...FallbackOption) *FallbackStore {
	s := &FallbackStore{
		primary:  primary,
		fallback: fallback,
		breaker:  newCircuitBreaker(5, 3, 10*time.Second),
		logger:   slog.Default(),
		now:      time.Now,
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *FallbackStore) Get(ctx context.Context, key string) (Entry, error) {
	if !s.breaker.AllowPrimary(s.now()) || !s.replayDeletes(ctx) {
		return s.fallback.Get(ctx, key)
	}
	entry, err := s.primary.Get(ctx, key)
	if s.observe(ctx, err) {
		return s.fallback.Get(ctx, key)
	}
	return entry, err
}

func (s *FallbackStore) Put(ctx context.Context, entry Entry) error {
	if err := s.fallback.Put(ctx, entry); err != nil {
		s.logger.DebugContext(ctx, "fallback cache write failed", "key", entry.Key, "error", err)
	}
	if !s.breaker.AllowPrimary(s.now()) || !s.replayDeletes(ctx) {
		return nil
	}
	err := s.primary.Put(ctx, entry)
	s.observe(ctx, err)
	return nil
}

// Delete removes key from both stores. When the primary cannot be reached the
// delete is queued and replayed on recovery; a full queue is reported as
// sentinel.ErrUnavailable.
func (s *FallbackStore) Delete(ctx context.Context, key string) error {
	fallbackErr := s.fallback.Delete(ctx, key)
	if s.breaker.AllowPrimary(s.now()) && s.replayDeletes(ctx) {
		err := s.primary.Delete(ctx, key)
		if !s.observe(ctx, err) {
			return err
		}
	}
	if err := s.deferDelete(key); err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "primary cache delete deferred", "key", key)
	return fallbackErr
}

func (s *FallbackStore) deferDelete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[key]; ok {
		return nil
	}
	if len(s.pending) >= maxPendingDeletes {
		return fmt.Errorf("defer delete of %q: %w", key, sentinel.ErrUnavailable)
	}
	s.pending[key] = struct{}{}
	return nil
}

// replayDeletes applies queued deletes to the primary. It reports false when
// the primary failed again and the caller should use the fallback.
func (s *FallbackStore) replayDeletes(ctx context.Context) bool {
	s.mu.Lock()
	keys := make([]string, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	for _, k := range keys {
		err := s.primary.Delete(ctx, k)
		if s.observe(ctx, err) {
			return false
		}
		s.mu.Lock()
		delete(s.pending, k)
		s.mu.Unlock()
	}
	return true
}

// PendingDeletes reports how many deletes await replay on the primary.
func (s *FallbackStore) PendingDeletes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Sweep forwards to the fallback when it can be swept. The primary is
// expected to expire entries itself.
func (s *FallbackStore) Sweep(ctx context.Context) (int, error) {
	if sw, ok := s.fallback.(Sweepable); ok {
		return sw.Sweep(ctx)
	}
	return 0, nil
}

// Degraded reports whether reads are currently served by the fallback.
func (s *FallbackStore) Degraded() bool {
	return s.breaker.IsOpen()
}

// observe feeds a primary call's error into the breaker and reports whether
// the caller should use the fallback instead.
func (s *FallbackStore) observe(ctx context.Context, err error) bool {
	if err == nil || errors.Is(err, sentinel.ErrNotFound) {
		wasOpen := s.breaker.IsOpen()
		if s.breaker.RecordSuccess() && wasOpen {
			s.metrics.SetCacheDegraded(false)
			s.logger.InfoContext(ctx, "primary cache recovered")
		}
		return false
	}

	wasOpen := s.breaker.IsOpen()
	if s.breaker.RecordFailure() && !wasOpen {
		s.metrics.SetCacheDegraded(true)
		s.logger.WarnContext(ctx, "primary cache unavailable, serving from fallback", "error", err)
	}
	return true
}
