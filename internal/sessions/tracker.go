package sessions

import (
	"context"
	"sync"
)

// tracks in-flight chat turns so deleting a session can abandon them
type Tracker struct {
	mu    sync.Mutex
	next  uint64
	turns map[string]map[uint64]context.CancelCauseFunc
}

func NewTracker() *Tracker {
	return &Tracker{turns: make(map[string]map[uint64]context.CancelCauseFunc)}
}

// derives a context that CancelSession can cancel; done must be called
// when the turn ends
func (t *Tracker) Begin(ctx context.Context, sessionID string) (context.Context, func()) {
	turnCtx, cancel := context.WithCancelCause(ctx)

	t.mu.Lock()
	t.next++
	id := t.next

	if t.turns[sessionID] == nil {
		t.turns[sessionID] = make(map[uint64]context.CancelCauseFunc)
	}
	t.turns[sessionID][id] = cancel
	t.mu.Unlock()

	return turnCtx, func() {
		t.mu.Lock()
		delete(t.turns[sessionID], id)
		if len(t.turns[sessionID]) == 0 {
			delete(t.turns, sessionID)
		}
		t.mu.Unlock()

		cancel(nil)
	}
}

// cancels every turn of the session without waiting for them
func (t *Tracker) CancelSession(sessionID string) int {
	t.mu.Lock()
	turns := t.turns[sessionID]
	delete(t.turns, sessionID)
	t.mu.Unlock()

	for _, cancel := range turns {
		cancel(ErrSessionDeleted)
	}

	return len(turns)
}

func (t *Tracker) InFlight(sessionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.turns[sessionID])
}
