// Package lock serializes trigger sweeps across workers and processes that
// share one store.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAcquired is returned when another owner holds the lock.
var ErrNotAcquired = errors.New("lock held by another owner")

// Release gives up a held lock.
type Release func(ctx context.Context) error

// Locker defines the interface contract for a non-blocking mutual exclusion
// lock. Acquire returns ErrNotAcquired instead of waiting.
type Locker interface {
	Acquire(ctx context.Context) (Release, error)
}

// Compile-time interface check
var _ Locker = (*Local)(nil)

// Local is an in-process Locker.
type Local struct {
	mu sync.Mutex
}

// NewLocal returns an unlocked Local.
func NewLocal() *Local {
	return &Local{}
}

// Acquire takes the lock if it is free.
func (l *Local) Acquire(ctx context.Context) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !l.mu.TryLock() {
		return nil, ErrNotAcquired
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(l.mu.Unlock)
		return nil
	}, nil
}
