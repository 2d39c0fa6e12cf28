package state

import (
	"context"
	"sync"
	"time"
)

// MemoryManager keeps sessions in process memory. Expired sessions read as
// idle and are dropped lazily or by Sweep.
type MemoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	ttl      time.Duration
	now      func() time.Time
}

var _ Manager = (*MemoryManager)(nil)

// NewMemoryManager constructs an in-memory Manager. A ttl of zero disables expiry.
func NewMemoryManager(ttl time.Duration) *MemoryManager {
	return &MemoryManager{
		sessions: make(map[int64]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryManager) expired(s Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.UpdatedAt) > m.ttl
}

// Get returns the session for a user if it exists, otherwise an idle session.
func (m *MemoryManager) Get(_ context.Context, userID int64) (Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return Idle(), nil
	}
	if m.expired(s, m.now()) {
		m.mu.Lock()
		if cur, ok := m.sessions[userID]; ok && m.expired(cur, m.now()) {
			delete(m.sessions, userID)
		}
		m.mu.Unlock()
		return Idle(), nil
	}
	return s.Clone(), nil
}

// Save stores a copy of s and refreshes its timestamp.
func (m *MemoryManager) Save(_ context.Context, userID int64, s Session) error {
	s = s.Clone()
	s.UpdatedAt = m.now()
	m.mu.Lock()
	m.sessions[userID] = s
	m.mu.Unlock()
	return nil
}

// Clear removes the entire session for a user.
func (m *MemoryManager) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryManager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored sessions, expired ones included.
func (m *MemoryManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *MemoryManager) RunSweeper(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
