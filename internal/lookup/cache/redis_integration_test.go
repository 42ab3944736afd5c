//go:build integration

package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idsearch/internal/lookup/cache"
	"idsearch/pkg/platform/sentinel"
	"idsearch/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *cache.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = cache.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) TearDownSuite() {
	_ = s.redis.Terminate(context.Background())
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	entry := cache.NewEntry("jdoe", found("Jane Doe"), time.Now().UTC().Truncate(time.Second), time.Minute)

	s.Require().NoError(s.store.Put(ctx, entry))
	got, err := s.store.Get(ctx, "jdoe")
	s.Require().NoError(err)
	s.Equal(entry.Key, got.Key)
	s.Equal("Jane Doe", got.Payload.Record.Name)
	s.True(entry.ExpiresAt.Equal(got.ExpiresAt))
}

func (s *RedisStoreSuite) TestKeyExpiresWithEntry() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, cache.NewEntry("jdoe", found("Jane Doe"), time.Now(), time.Second)))

	ttl, err := s.redis.Client.TTL(ctx, "idsearch:search:jdoe").Result()
	s.Require().NoError(err)
	s.LessOrEqual(ttl, time.Second)

	s.Eventually(func() bool {
		_, err := s.store.Get(ctx, "jdoe")
		return err != nil
	}, 3*time.Second, 100*time.Millisecond)
}

func (s *RedisStoreSuite) TestExpiredEntryIsNotWritten() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, cache.NewEntry("old", found("Old"), time.Now().Add(-time.Hour), time.Minute)))

	_, err := s.store.Get(ctx, "old")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestCorruptPayloadIsAMiss() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.Set(ctx, "idsearch:search:jdoe", "{not json", time.Minute).Err())

	_, err := s.store.Get(ctx, "jdoe")
	s.ErrorIs(err, sentinel.ErrNotFound)

	exists, err := s.redis.Client.Exists(ctx, "idsearch:search:jdoe").Result()
	s.Require().NoError(err)
	s.Zero(exists)
}

func (s *RedisStoreSuite) TestDelete() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, cache.NewEntry("jdoe", found("Jane Doe"), time.Now(), time.Minute)))
	s.Require().NoError(s.store.Delete(ctx, "jdoe"))

	_, err := s.store.Get(ctx, "jdoe")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestConcurrentPutsLastWriterWins() {
	ctx := context.Background()
	names := []string{"Jane Doe", "Jane Q. Doe", "J. Doe"}

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.store.Put(ctx, cache.NewEntry("jdoe", found(name), time.Now(), time.Minute)))
		}()
	}
	wg.Wait()

	got, err := s.store.Get(ctx, "jdoe")
	s.Require().NoError(err)
	s.Contains(names, got.Payload.Record.Name)
}
