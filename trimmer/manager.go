package trimmer

import "sync"

// Manager owns at most one trim session per track slot. Slots share
// nothing: each session has its own source bytes, window and playhead.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	enc      Encoder
	sessions map[string]*Session
}

// NewManager creates a session manager for the given clip parameters.
func NewManager(cfg Config, enc Encoder) *Manager {
	return &Manager{
		cfg:      cfg,
		enc:      enc,
		sessions: make(map[string]*Session),
	}
}

// Config returns the clip parameters the manager hands to new sessions.
func (m *Manager) Config() Config {
	return m.cfg
}

// OpenFor routes a newly selected clip file for a slot. A selection while
// the slot's previous session is still encoding is rejected. When the
// source is a ready-made clip (Result.Skipped) no session is retained.
func (m *Manager) OpenFor(slot string, data []byte, sourceName, baseName string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[slot]; ok {
		if existing.State() == StateEncoding {
			return nil, ErrEncodeInFlight
		}
		existing.Cancel()
		delete(m.sessions, slot)
	}

	session := NewSession(m.cfg, m.enc)
	result, err := session.OpenFor(data, sourceName, baseName)
	if err != nil {
		return nil, err
	}
	if result != nil && result.Skipped {
		return result, nil
	}

	m.sessions[slot] = session
	return nil, nil
}

// Get returns the live session for a slot.
func (m *Manager) Get(slot string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[slot]
	return session, ok
}

// Close cancels and forgets the slot's session.
func (m *Manager) Close(slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[slot]
	if !ok {
		return nil
	}
	if err := session.Cancel(); err != nil {
		return err
	}
	delete(m.sessions, slot)
	return nil
}

// Forget drops a finished session without cancelling it. Used after a
// successful confirm, when the session has already closed itself.
func (m *Manager) Forget(slot string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, slot)
}
