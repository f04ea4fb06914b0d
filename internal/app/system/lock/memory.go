package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker keeps locks in process memory. Locks do not survive restarts
// and are not shared between instances.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memEntry
	stop  chan struct{}
	once  sync.Once
}

type memEntry struct {
	owner     string
	expiresAt time.Time
}

// NewMemoryLocker starts a locker with a background sweep of expired entries.
// Call Close to stop the sweep.
func NewMemoryLocker() *MemoryLocker {
	m := &MemoryLocker{
		locks: make(map[string]memEntry),
		stop:  make(chan struct{}),
	}
	go m.sweepLoop(30 * time.Second)
	return m
}

// Close stops the sweep goroutine.
func (m *MemoryLocker) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *MemoryLocker) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for k, e := range m.locks {
				if now.After(e.expiresAt) {
					delete(m.locks, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if e, ok := m.locks[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	m.locks[key] = memEntry{owner: newOwnerToken(), expiresAt: now.Add(ttl)}
	return true, nil
}

func (m *MemoryLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	return retry(ctx, func() (bool, error) { return m.Acquire(ctx, key, ttl) }, maxRetries, retryDelay)
}

func (m *MemoryLocker) Release(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.locks[key]; !ok {
		return false, nil
	}
	delete(m.locks, key)
	return true, nil
}

func (m *MemoryLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[key]
	if !ok {
		return false, nil
	}
	now := time.Now()
	if now.After(e.expiresAt) {
		delete(m.locks, key)
		return false, nil
	}
	e.expiresAt = now.Add(ttl)
	m.locks[key] = e
	return true, nil
}

func (m *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(e.expiresAt) {
		delete(m.locks, key)
		return false, nil
	}
	return true, nil
}

var _ Locker = (*MemoryLocker)(nil)
