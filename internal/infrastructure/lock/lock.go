// Package lock serializes work across goroutines and processes by key.
package lock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotObtained is returned when the lock is held elsewhere for longer than the wait
	ErrNotObtained = errors.New("lock: not obtained")
	// ErrLockLost is returned by Refresh when the TTL ran out and the key may have a new holder
	ErrLockLost = errors.New("lock: lost")
)

// Lock is a held lock
type Lock interface {
	// Refresh pushes the expiry back to a full TTL from now
	Refresh(ctx context.Context) error
	Release(ctx context.Context) error
}

// Locker hands out exclusive locks by key
type Locker interface {
	// Obtain blocks for at most the locker's wait and returns ErrNotObtained on timeout
	Obtain(ctx context.Context, key string) (Lock, error)
}

// Options configures a Locker
type Options struct {
	// TTL bounds how long a crashed holder can block others
	TTL time.Duration
	// Wait is how long Obtain retries before giving up; zero means one attempt
	Wait time.Duration
}

const (
	defaultTTL   = 5 * time.Minute
	retryBackoff = 50 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = defaultTTL
	}
	if o.Wait < 0 {
		o.Wait = 0
	}
	return o
}
