package receipt

import "sync"

// Guard is a single-flight lock ensuring one receipt conversation is
// processed at a time per bot process. Triggers arriving while the
// guard is held are dropped by the caller.
type Guard struct {
	mu   sync.Mutex
	held bool
}

// NewGuard creates an idle Guard
func NewGuard() *Guard {
	return &Guard{}
}

// TryAcquire takes the guard if it is idle and reports whether it did
func (g *Guard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return false
	}
	g.held = true
	return true
}

// Release returns the guard to idle. Safe to call on an idle guard.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
}
