package orchestrator

import "sync"

// latch is a single-flight guard: TryAcquire succeeds for exactly one
// caller until Release. Re-entrant callers are expected to no-op.
type latch struct {
	mu   sync.Mutex
	busy bool
}

func (l *latch) tryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy {
		return false
	}
	l.busy = true
	return true
}

func (l *latch) release() {
	l.mu.Lock()
	l.busy = false
	l.mu.Unlock()
}
