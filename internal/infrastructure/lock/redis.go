package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisLocker is a Locker shared by every process talking to the same redis
type RedisLocker struct {
	client *redislock.Client
	opts   Options
	prefix string
}

// NewRedisLocker creates a RedisLocker on rdb
func NewRedisLocker(rdb *redis.Client, opts Options) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		opts:   opts.withDefaults(),
		prefix: "lock:",
	}
}

// Obtain implements Locker
func (l *RedisLocker) Obtain(ctx context.Context, key string) (Lock, error) {
	retries := int(l.opts.Wait / retryBackoff)
	strategy := redislock.NoRetry()
	if retries > 0 {
		strategy = redislock.LimitRetry(redislock.LinearBackoff(retryBackoff), retries)
	}

	lk, err := l.client.Obtain(ctx, l.prefix+key, l.opts.TTL, &redislock.Options{RetryStrategy: strategy})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtain redis lock %s: %w", key, err)
	}
	return redisLock{lock: lk, ttl: l.opts.TTL}, nil
}

type redisLock struct {
	lock *redislock.Lock
	ttl  time.Duration
}

func (r redisLock) Refresh(ctx context.Context) error {
	err := r.lock.Refresh(ctx, r.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrLockLost
	}
	if err != nil {
		return fmt.Errorf("refresh redis lock %s: %w", r.lock.Key(), err)
	}
	return nil
}

func (r redisLock) Release(ctx context.Context) error {
	err := r.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		// expired under us; nothing left to release
		return nil
	}
	return err
}

var _ Locker = (*RedisLocker)(nil)
