package realtime

import "sync"

// Registry maps each user to their single live session and back.
// One mutex guards both maps so a register and an unregister can never
// interleave between the forward and the reverse update.
type Registry struct {
	mu        sync.Mutex
	byUser    map[string]string
	bySession map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:    make(map[string]string),
		bySession: make(map[string]string),
	}
}

// Register binds userID to sessionID. The last registration wins; the
// superseded session keeps its connection but is no longer routable.
func (r *Registry) Register(userID string, sessionID string) {
	if userID == "" || sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevUser, ok := r.bySession[sessionID]; ok && prevUser != userID {
		if r.byUser[prevUser] == sessionID {
			delete(r.byUser, prevUser)
		}
	}
	if prevSession, ok := r.byUser[userID]; ok && prevSession != sessionID {
		delete(r.bySession, prevSession)
	}
	r.byUser[userID] = sessionID
	r.bySession[sessionID] = userID
}

// Unregister releases sessionID. A stale session never removes the mapping
// of the session that replaced it.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.bySession[sessionID]
	if !ok {
		return
	}
	delete(r.bySession, sessionID)
	if r.byUser[userID] == sessionID {
		delete(r.byUser, userID)
	}
}

func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessionID, ok := r.byUser[userID]
	return sessionID, ok
}

// Len reports the number of routable users.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}
