package sessions

import (
	"context"
	"sync"
)

// serializes work on one chat session
type Locker interface {
	// blocks until the session is free or ctx is done
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

type lockEntry struct {
	slot chan struct{}
	refs int
}

// in-process per-session mutex; entries are dropped once nobody waits on them
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*lockEntry)}
}

func (l *MemoryLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[sessionID]
	if !ok {
		e = &lockEntry{slot: make(chan struct{}, 1)}
		l.locks[sessionID] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			l.release(sessionID, e)
		})
	}, nil
}

func (l *MemoryLocker) release(sessionID string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, sessionID)
	}
}

// sessions with a holder or waiter
func (l *MemoryLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
