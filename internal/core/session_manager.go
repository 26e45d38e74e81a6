package core

import (
	"sort"
	"sync"
	"time"
)

// sessionSlot holds one live session. step serializes the stages of the
// session; it is only ever try-locked so a second concurrent step fails fast.
type sessionSlot struct {
	step    sync.Mutex
	session Session
}

// SessionManager tracks live (non-terminal) sessions by handle.
type SessionManager struct {
	mu    sync.RWMutex
	slots map[string]*sessionSlot
}

// NewSessionManager creates an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{slots: make(map[string]*sessionSlot)}
}

// Add registers a new session under its handle.
func (m *SessionManager) Add(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[s.Handle] = &sessionSlot{session: s}
}

// Get returns a snapshot of the session.
func (m *SessionManager) Get(handle string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	slot, ok := m.slots[handle]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return slot.session, nil
}

// begin claims the session for one step. The returned release func must be
// called exactly once.
func (m *SessionManager) begin(handle string) (Session, func(), error) {
	m.mu.RLock()
	slot, ok := m.slots[handle]
	m.mu.RUnlock()
	if !ok {
		return Session{}, nil, ErrSessionNotFound
	}

	if !slot.step.TryLock() {
		return Session{}, nil, ErrSessionBusy
	}

	// The slot may have been removed between the lookup and the lock.
	m.mu.RLock()
	current, still := m.slots[handle]
	s := slot.session
	m.mu.RUnlock()
	if !still || current != slot {
		slot.step.Unlock()
		return Session{}, nil, ErrSessionNotFound
	}

	return s, slot.step.Unlock, nil
}

// put stores the updated session, removing it once it is terminal.
func (m *SessionManager) put(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[s.Handle]
	if !ok {
		return
	}
	if s.State.Terminal() {
		delete(m.slots, s.Handle)
		return
	}
	slot.session = s
}

// Idle returns handles of sessions not updated since cutoff, oldest first.
func (m *SessionManager) Idle(cutoff time.Time) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type idle struct {
		handle string
		at     time.Time
	}
	var found []idle
	for h, slot := range m.slots {
		if slot.session.UpdatedAt.Before(cutoff) {
			found = append(found, idle{h, slot.session.UpdatedAt})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].at.Before(found[j].at) })

	handles := make([]string, len(found))
	for i, f := range found {
		handles[i] = f.handle
	}
	return handles
}

// Has reports whether handle belongs to a live session.
func (m *SessionManager) Has(handle string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.slots[handle]
	return ok
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}
