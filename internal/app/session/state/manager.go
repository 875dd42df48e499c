package state

import (
	"sync"
)

// Manager tracks the session phase and the active catalog source.
type Manager struct {
	mu sync.RWMutex

	sessionID string
	phase     Phase
	source    string
	loads     int
}

// New creates a new state manager.
func New(sessionID string) *Manager {
	return &Manager{
		sessionID: sessionID,
		phase:     PhaseIdle,
	}
}

// GetSessionID returns the session ID.
func (m *Manager) GetSessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// GetPhase returns the current phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// BeginLoad enters PhaseLoading for the named source. Returns false once
// the session is closed.
func (m *Manager) BeginLoad(source string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseClosed {
		return false
	}
	m.phase = PhaseLoading
	m.source = source
	m.loads++
	return true
}

// EndLoad returns to PhaseReady when no other load is in flight.
func (m *Manager) EndLoad() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loads > 0 {
		m.loads--
	}
	if m.phase == PhaseLoading && m.loads == 0 {
		m.phase = PhaseReady
	}
}

// GetSource returns the name of the active catalog source.
func (m *Manager) GetSource() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.source
}

// Close enters PhaseClosed. Returns false if already closed.
func (m *Manager) Close() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseClosed {
		return false
	}
	m.phase = PhaseClosed
	return true
}
