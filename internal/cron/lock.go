package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/resinart/storefront-api/pkg/config"
	"github.com/resinart/storefront-api/pkg/instance"
	"github.com/resinart/storefront-api/pkg/logger"
)

// fallbackLockTTL applies when neither a lock TTL nor an interval is configured.
const fallbackLockTTL = 10 * time.Minute

// Lock keeps two cron workers from running the same cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockBackend interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// RedisLock is a SETNX lease whose value names the holding instance.
type RedisLock struct {
	client lockBackend
	key    string
	ttl    time.Duration
	logg   *logger.Logger
	holder string
}

// NewRedisLock leases the lock called name under the client's lock namespace.
// The lease lasts cfg.LockTTL, or twice the cycle interval when that is unset,
// so a crashed worker cannot block the next cycles for long.
func NewRedisLock(client lockBackend, name string, cfg config.CronConfig, logg *logger.Logger) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for cron lock")
	}
	if name == "" {
		return nil, errors.New("cron lock name required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisLock{
		client: client,
		key:    client.LockKey(name),
		ttl:    leaseFor(cfg),
		logg:   logg,
	}, nil
}

func leaseFor(cfg config.CronConfig) time.Duration {
	switch {
	case cfg.LockTTL > 0:
		return cfg.LockTTL
	case cfg.Interval > 0:
		return 2 * cfg.Interval
	default:
		return fallbackLockTTL
	}
}

func (l *RedisLock) Key() string { return l.key }

func (l *RedisLock) TTL() time.Duration { return l.ttl }

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := instance.GetID() + "/" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire cron lock %s: %w", l.key, err)
	}
	logCtx := l.logg.WithFields(ctx, map[string]any{"lock": l.key, "ttl": l.ttl.String()})
	if !ok {
		// best effort; the key may expire between SETNX and GET
		current, _ := l.client.Get(ctx, l.key)
		l.logg.Info(l.logg.WithField(logCtx, "held_by", current), "cron.lock_busy")
		return false, nil
	}
	l.holder = token
	l.logg.Debug(logCtx, "cron.lock_acquired")
	return true, nil
}

// Release drops the lease only while this lock still holds it. An expired lease
// that another instance has since taken is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.holder == "" {
		return nil
	}
	token := l.holder
	l.holder = ""

	current, err := l.client.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		l.logg.Warn(l.logg.WithField(ctx, "lock", l.key), "cron.lock_expired_before_release")
		return nil
	case err != nil:
		return fmt.Errorf("read cron lock %s: %w", l.key, err)
	case current != token:
		l.logg.Warn(l.logg.WithFields(ctx, map[string]any{"lock": l.key, "held_by": current}), "cron.lock_taken_over")
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release cron lock %s: %w", l.key, err)
	}
	l.logg.Debug(l.logg.WithField(ctx, "lock", l.key), "cron.lock_released")
	return nil
}
