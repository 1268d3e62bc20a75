// Package lock provides short-lived named locks for background jobs.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotHeld is returned by Release when the lock expired or was taken over.
var ErrNotHeld = errors.New("lock not held")

// Locker acquires a named lock for at most ttl. A false result with a nil
// error means another holder owns the key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error)
}

// Lease releases an acquired lock.
type Lease interface {
	Release(ctx context.Context) error
}

// LocalLocker is an in-process Locker used when no Redis is configured.
type LocalLocker struct {
	mu     sync.Mutex
	held   map[string]localEntry
	nextID uint64
	now    func() time.Time
}

type localEntry struct {
	id        uint64
	expiresAt time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localEntry), now: time.Now}
}

// TryLock implements Locker.
func (l *LocalLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expiresAt) {
		return nil, false, nil
	}

	l.nextID++
	l.held[key] = localEntry{id: l.nextID, expiresAt: now.Add(ttl)}
	return &localLease{locker: l, key: key, id: l.nextID}, true, nil
}

type localLease struct {
	locker *LocalLocker
	key    string
	id     uint64
}

func (l *localLease) Release(ctx context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()

	e, ok := l.locker.held[l.key]
	if !ok || e.id != l.id {
		return ErrNotHeld
	}
	delete(l.locker.held, l.key)
	return nil
}
