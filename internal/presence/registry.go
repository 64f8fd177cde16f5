// Package presence tracks which websocket connection currently speaks for a user.
package presence

import "sync"

// Registry maps users to their active connection. A user has at most one
// connection and a connection belongs to at most one user; the latest
// registration wins on both sides.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int]string
	byConn map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int]string),
		byConn: make(map[string]int),
	}
}

// Register binds userID to connID, dropping any previous binding of either side.
func (r *Registry) Register(userID int, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prevConn, ok := r.byUser[userID]; ok && prevConn != connID {
		delete(r.byConn, prevConn)
	}
	if prevUser, ok := r.byConn[connID]; ok && prevUser != userID {
		delete(r.byUser, prevUser)
	}
	r.byUser[userID] = connID
	r.byConn[connID] = userID
}

// Lookup returns the connection registered for userID.
func (r *Registry) Lookup(userID int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byUser[userID]
	return connID, ok
}

// Unregister removes the entry owned by connID and reports the user it was bound to.
func (r *Registry) Unregister(connID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.byConn[connID]
	if !ok {
		return 0, false
	}
	delete(r.byConn, connID)
	delete(r.byUser, userID)
	return userID, true
}

// Len returns the number of users currently online.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
