package registry

import "sync"

// PendingSet tracks user identifiers currently holding the per-network
// dispense lock. It is the only mutual-exclusion primitive in the system:
// in-memory, per process, reset on restart.
type PendingSet struct {
	mu    sync.Mutex
	users map[string]struct{}
}

// NewPendingSet constructs an empty set.
func NewPendingSet() *PendingSet {
	return &PendingSet{users: make(map[string]struct{})}
}

// TryAcquire inserts the user, reporting false when already held.
func (p *PendingSet) TryAcquire(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, held := p.users[userID]; held {
		return false
	}
	p.users[userID] = struct{}{}
	return true
}

// Release removes the user. Releasing an absent user is a no-op.
func (p *PendingSet) Release(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.users, userID)
}

// Len reports how many users currently hold the lock.
func (p *PendingSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.users)
}
