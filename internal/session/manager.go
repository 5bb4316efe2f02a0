package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/payvo/payvo/internal/ledger"
)

// ErrSessionNotFound is returned for unknown or closed session ids.
var ErrSessionNotFound = errors.New("session not found")

// Manager tracks the open sessions of a process.
type Manager struct {
	mu       sync.RWMutex
	dir      *ledger.Directory
	opts     Options
	sessions map[uuid.UUID]*Session
}

// NewManager returns a manager whose sessions share dir and opts.
func NewManager(dir *ledger.Directory, opts Options) *Manager {
	return &Manager{dir: dir, opts: opts.withDefaults(), sessions: make(map[uuid.UUID]*Session)}
}

// Directory exposes the shared directory to handlers.
func (m *Manager) Directory() *ledger.Directory { return m.dir }

// Open starts a session for an account that has already been authenticated.
func (m *Manager) Open(email string) (*Session, error) {
	acct, err := m.dir.Get(email)
	if err != nil {
		return nil, err
	}
	s := New(m.dir, acct.Email, m.opts)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get looks up an open session.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close ends and forgets a session.
func (m *Manager) Close(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close(ctx)
	return nil
}

// CloseAll ends every session, for shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	open := m.sessions
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()
	for _, s := range open {
		s.Close(ctx)
	}
}

// CloseFor ends every session acting as email. Used after an account is
// deleted.
func (m *Manager) CloseFor(ctx context.Context, email string) {
	m.mu.Lock()
	var gone []*Session
	for id, s := range m.sessions {
		if strings.EqualFold(s.email, email) {
			gone = append(gone, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range gone {
		s.Close(ctx)
	}
}
