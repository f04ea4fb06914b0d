// Package lock provides short-lived named locks.
//
// MemoryLocker serves a single process. RedisLocker coordinates several
// instances through one Redis server. Both satisfy Locker, so callers pick a
// backend at startup and never branch on it.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotAcquired is returned by With when the lock stayed busy for every retry.
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker acquires and releases named locks with a TTL.
type Locker interface {
	// Acquire takes key if it is free or expired. It returns false when
	// another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireWithRetry calls Acquire up to maxRetries+1 times, sleeping
	// retryDelay between attempts.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release frees key. It returns false if this locker did not hold it.
	Release(ctx context.Context, key string) (bool, error)

	// Extend pushes the expiry of a held lock to now+ttl.
	Extend(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsHeld reports whether key is currently locked by anyone.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// Options tune With.
type Options struct {
	TTL        time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// AvatarUploadOptions bound the avatar upload critical section: a 30s lease
// and roughly five seconds of waiting.
var AvatarUploadOptions = Options{
	TTL:        30 * time.Second,
	MaxRetries: 50,
	RetryDelay: 100 * time.Millisecond,
}

// With runs fn while holding key. The lock is released on a fresh context so
// a canceled request still frees it.
func With(ctx context.Context, l Locker, key string, opts Options, fn func(ctx context.Context) error) error {
	ok, err := l.AcquireWithRetry(ctx, key, opts.TTL, opts.MaxRetries, opts.RetryDelay)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = l.Release(rctx, key)
	}()
	return fn(ctx)
}

// Keys builds lock names.
var Keys = lockKeys{}

type lockKeys struct{}

// AvatarUpload serializes avatar replacement for one user.
func (lockKeys) AvatarUpload(userID string) string {
	return "lock:avatar:" + userID
}

// retry drives AcquireWithRetry for both backends.
func retry(ctx context.Context, acquire func() (bool, error), maxRetries int, retryDelay time.Duration) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		ok, err := acquire()
		if err != nil || ok {
			return ok, err
		}
		if i < maxRetries {
			t := time.NewTimer(retryDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return false, ctx.Err()
			case <-t.C:
			}
		}
	}
	return false, nil
}

func newOwnerToken() string {
	return uuid.NewString()
}
