package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLocker is an in-process Locker keyed by string. It is used when redis
// is disabled and in tests.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	opts Options
}

// NewLocalLocker creates a LocalLocker
func NewLocalLocker(opts Options) *LocalLocker {
	return &LocalLocker{
		held: make(map[string]chan struct{}),
		opts: opts.withDefaults(),
	}
}

// Obtain implements Locker. TTL is not enforced in-process.
func (l *LocalLocker) Obtain(ctx context.Context, key string) (Lock, error) {
	var deadline <-chan time.Time
	if l.opts.Wait > 0 {
		timer := time.NewTimer(l.opts.Wait)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			ch := make(chan struct{})
			l.held[key] = ch
			l.mu.Unlock()
			return &localLock{locker: l, key: key, released: ch}, nil
		}
		l.mu.Unlock()

		if deadline == nil {
			return nil, ErrNotObtained
		}
		select {
		case <-released:
		case <-deadline:
			return nil, ErrNotObtained
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type localLock struct {
	locker   *LocalLocker
	key      string
	released chan struct{}
	once     sync.Once
}

// Refresh only reports a lock that was already released; TTL is not enforced in-process.
func (l *localLock) Refresh(context.Context) error {
	select {
	case <-l.released:
		return ErrLockLost
	default:
		return nil
	}
}

func (l *localLock) Release(context.Context) error {
	l.once.Do(func() {
		l.locker.mu.Lock()
		delete(l.locker.held, l.key)
		l.locker.mu.Unlock()
		close(l.released)
	})
	return nil
}

var _ Locker = (*LocalLocker)(nil)
