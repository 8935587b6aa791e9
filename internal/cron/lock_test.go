package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resinart/storefront-api/pkg/config"
	"github.com/resinart/storefront-api/pkg/logger"
)

type memoryStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) LockKey(name string) string { return "storefront:lock:" + name }

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	store := newMemoryStore()
	cfg := config.CronConfig{LockTTL: time.Minute}
	first, err := NewRedisLock(store, "cron", cfg, logger.Nop())
	require.NoError(t, err)
	second, err := NewRedisLock(store, "cron", cfg, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.Equal(t, "storefront:lock:cron", first.Key())
	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Minute, store.ttls[first.Key()])

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.data, first.Key(), "non-holder release must not drop the lock")

	require.NoError(t, first.Release(ctx))
	ok, _ = second.Acquire(ctx)
	assert.True(t, ok, "lock must be free after the holder releases it")
}

func TestRedisLockLeavesTakenOverLeaseAlone(t *testing.T) {
	store := newMemoryStore()
	lock, err := NewRedisLock(store, "cron", config.CronConfig{LockTTL: time.Minute}, logger.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.Contains(store.data[lock.Key()], "/"), "lease value names the instance")

	// lease expired and another worker took it
	store.data[lock.Key()] = "worker-b/other"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "worker-b/other", store.data[lock.Key()])
}

func TestRedisLockLeaseFromCronConfig(t *testing.T) {
	store := newMemoryStore()
	cases := []struct {
		cfg  config.CronConfig
		want time.Duration
	}{
		{config.CronConfig{LockTTL: 3 * time.Minute, Interval: time.Hour}, 3 * time.Minute},
		{config.CronConfig{Interval: 30 * time.Minute}, time.Hour},
		{config.CronConfig{}, fallbackLockTTL},
	}
	for _, tc := range cases {
		lock, err := NewRedisLock(store, "cron", tc.cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.want, lock.TTL())
	}

	_, err := NewRedisLock(store, "", config.CronConfig{}, nil)
	assert.Error(t, err)
	_, err = NewRedisLock(nil, "cron", config.CronConfig{}, nil)
	assert.Error(t, err)
}
