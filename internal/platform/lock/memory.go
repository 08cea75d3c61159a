package lock

import (
	"context"
	"sync"
)

type memoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewMemoryLocker creates an in-process locker for single-instance
// deployments and tests. It is non-blocking like the Redis locker: a
// contended key fails fast with ErrNotAcquired.
func NewMemoryLocker() Locker {
	return &memoryLocker{held: make(map[string]bool)}
}

func (l *memoryLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.held[key] {
		l.mu.Unlock()
		return ErrNotAcquired
	}
	l.held[key] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()

	return fn(ctx)
}
