package maintenance

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leaseStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newLeaseStore() *leaseStore { return &leaseStore{data: map[string]string{}} }

func (s *leaseStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.data[key]; taken {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *leaseStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *leaseStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

const lockKey = "spendo:lock:maintenance:test"

func TestRedisLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	store := newLeaseStore()
	first, err := NewRedisLock(store, lockKey, 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, lockKey, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, first.ttl)

	won, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, won)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.data, lockKey, "a loser must not free the winner's lease")

	require.NoError(t, first.Release(ctx))
	won, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestRedisLockLeavesReacquiredLeaseAlone(t *testing.T) {
	ctx := context.Background()
	store := newLeaseStore()
	stale, err := NewRedisLock(store, lockKey, time.Minute)
	require.NoError(t, err)

	_, err = stale.Acquire(ctx)
	require.NoError(t, err)
	store.data[lockKey] = "another-replica"

	require.NoError(t, stale.Release(ctx))
	assert.Equal(t, "another-replica", store.data[lockKey])
}

func TestNewRedisLockValidatesInput(t *testing.T) {
	_, err := NewRedisLock(nil, "k", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock(newLeaseStore(), "", time.Minute)
	assert.Error(t, err)
}
