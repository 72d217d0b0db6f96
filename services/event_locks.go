package services

import (
	"fmt"
	"sync"
	"time"
)

// EventLocks serializes capacity-mutating work per key (tenant+event for
// vendor pools, tenant+room for guesthouse rooms) inside one process. The
// database row lock taken in each transaction covers other processes.
//
// Entries are created on demand and removed by Sweep once they have been
// idle for longer than the TTL.
type EventLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	idleTTL time.Duration
	now     func() time.Time
}

type lockEntry struct {
	mu sync.Mutex

	// guarded by EventLocks.mu
	refs       int
	refreshing bool
	lastUsed   time.Time
}

func NewEventLocks(idleTTL time.Duration) *EventLocks {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &EventLocks{
		entries: make(map[string]*lockEntry),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

func poolLockKey(tenantID string, eventID uint) string {
	return fmt.Sprintf("pool:%s:%d", tenantID, eventID)
}

func roomLockKey(tenantID string, roomID uint) string {
	return fmt.Sprintf("room:%s:%d", tenantID, roomID)
}

// Acquire waits for the key and returns its release func. It fails fast with
// ErrRefreshInProgress when a refresh holds the key.
func (l *EventLocks) Acquire(key string) (func(), error) {
	return l.acquire(key, false)
}

// AcquireExclusive is used by refresh: while held, Acquire on the same key
// is rejected instead of queued.
func (l *EventLocks) AcquireExclusive(key string) (func(), error) {
	return l.acquire(key, true)
}

func (l *EventLocks) acquire(key string, exclusive bool) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	if e.refreshing {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRefreshInProgress, key)
	}
	if exclusive {
		e.refreshing = true
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if exclusive {
				e.refreshing = false
			}
			e.lastUsed = l.now()
			l.mu.Unlock()
		})
	}, nil
}

// Sweep drops entries nobody holds or waits on that have been idle longer
// than the TTL. It returns how many were removed.
func (l *EventLocks) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	removed := 0
	for key, e := range l.entries {
		if e.refs == 0 && !e.refreshing && e.lastUsed.Before(cutoff) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries.
func (l *EventLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
