// Package session tracks per-user conversational state in memory.
// State is intentionally not persisted; a restart drops every pending
// prompt and room selection.
package session

import "sync"

// Pending is the sealed set of actions awaiting the user's next
// message. A nil Pending means no prompt is outstanding.
type Pending interface {
	pending()
}

// AwaitRoomName marks an owner who was asked for a new room's name.
type AwaitRoomName struct{}

// AwaitAdminID marks an owner who was asked for a user ID to grant
// admin rights in Room.
type AwaitAdminID struct {
	Room string
}

// AwaitReplyBody marks an admin or owner who chose to reply to the
// message behind Token and owes the reply body.
type AwaitReplyBody struct {
	Token string
}

func (AwaitRoomName) pending()  {}
func (AwaitAdminID) pending()   {}
func (AwaitReplyBody) pending() {}

// Session is the full conversational state of one user. SelectedRoom
// is sticky: it survives pending prompts and stays until replaced.
type Session struct {
	Pending      Pending
	SelectedRoom string
}

// Manager holds sessions keyed by user ID. Each update replaces the
// whole session value under the lock, so concurrent updates for
// different users never interleave within one session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]Session)}
}

// Get returns the user's session, zero-valued when none exists.
func (m *Manager) Get(userID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID]
}

// SetPending installs a pending prompt, replacing any previous one.
// The room selection is untouched.
func (m *Manager) SetPending(userID int64, p Pending) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[userID]
	s.Pending = p
	m.sessions[userID] = s
}

// ClearPending drops the pending prompt, keeping the room selection.
func (m *Manager) ClearPending(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[userID]
	s.Pending = nil
	m.sessions[userID] = s
}

// SelectRoom sets the sticky room selection and cancels any pending
// prompt.
func (m *Manager) SelectRoom(userID int64, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = Session{SelectedRoom: room}
}

// ClearSelection drops the room selection, keeping any pending prompt.
func (m *Manager) ClearSelection(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[userID]
	s.SelectedRoom = ""
	m.sessions[userID] = s
}

// Reset drops the user's session entirely.
func (m *Manager) Reset(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
