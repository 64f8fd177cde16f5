// Package activechat remembers which conversation each user has on screen.
package activechat

import "sync"

// Tracker maps a user to the peer whose conversation they are viewing.
type Tracker struct {
	mu      sync.RWMutex
	viewing map[int]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{viewing: make(map[int]int)}
}

// Open records that userID is viewing the conversation with peerID.
func (t *Tracker) Open(userID, peerID int) {
	t.mu.Lock()
	t.viewing[userID] = peerID
	t.mu.Unlock()
}

// Close forgets the conversation userID had open. Closing twice is harmless.
func (t *Tracker) Close(userID int) {
	t.mu.Lock()
	delete(t.viewing, userID)
	t.mu.Unlock()
}

// IsViewing reports whether userID currently has peerID's conversation open.
func (t *Tracker) IsViewing(userID, peerID int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	current, ok := t.viewing[userID]
	return ok && current == peerID
}

// Peer returns the peer userID is viewing.
func (t *Tracker) Peer(userID int) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	peerID, ok := t.viewing[userID]
	return peerID, ok
}
