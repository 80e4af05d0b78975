// Package session supervises one live interview per connection: it
// authenticates the candidate, enforces the one-session-per-user rule, and
// runs the turn engine alongside its message-reader and heartbeat tasks.
package session

import "sync"

// Registry tracks which users currently have a live interview. It is shared
// process-wide and safe for concurrent use. Process restart clears it; there
// is no persistence.
type Registry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]struct{})}
}

// TryInsert atomically claims a session slot for userID. It returns false if
// the user already has a live session.
func (r *Registry) TryInsert(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[userID]; ok {
		return false
	}
	r.active[userID] = struct{}{}
	return true
}

// Remove releases the user's session slot. Removing an absent user is a no-op.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, userID)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
