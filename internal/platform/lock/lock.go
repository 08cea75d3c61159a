// Package lock guards booking critical sections. Concurrent requests for
// the same provider and time window serialize on a per-window lock so that
// the availability check and the insert run as one unit.
package lock

import (
	"context"
	"errors"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker runs fn while holding an exclusive lock on key. If the lock is
// already held, WithLock returns ErrNotAcquired without running fn.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}
