// Package session holds the operator's login: bearer token and cached
// profile, with an explicit lifecycle instead of ambient global storage.
package session

import (
	"strings"
	"sync"
	"time"

	"rehab-service/pkg/types"
)

type Session struct {
	Token    string     `json:"token"`
	ExpireAt time.Time  `json:"expireAt"`
	User     types.User `json:"user"`
}

// Valid reports whether the token can still be sent.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || strings.TrimSpace(s.Token) == "" {
		return false
	}
	return s.ExpireAt.IsZero() || now.Before(s.ExpireAt)
}

// Store persists a session between runs.
type Store interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

// Manager is the session context handed to everything that needs the
// caller's identity. It is safe for concurrent use.
type Manager struct {
	store Store
	now   func() time.Time

	mu      sync.RWMutex
	current *Session
}

// NewManager restores any stored session. An expired one is discarded.
func NewManager(store Store) (*Manager, error) {
	m := &Manager{store: store, now: time.Now}
	s, err := store.Load()
	if err != nil {
		return nil, err
	}
	if s.Valid(m.now()) {
		m.current = s
	} else if s != nil {
		if err := store.Clear(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Login stores a fresh login result.
func (m *Manager) Login(res types.LoginResult) error {
	s := &Session{Token: res.Token, ExpireAt: res.ExpireAt, User: res.User}
	if err := m.store.Save(s); err != nil {
		return err
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return nil
}

// Refresh replaces the cached profile, keeping the token.
func (m *Manager) Refresh(u types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	next := *m.current
	next.User = u
	if err := m.store.Save(&next); err != nil {
		return err
	}
	m.current = &next
	return nil
}

func (m *Manager) Logout() error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	return m.store.Clear()
}

// Token returns the bearer token, or "" when logged out or expired.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.current.Valid(m.now()) {
		return ""
	}
	return m.current.Token
}

func (m *Manager) User() (types.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.current.Valid(m.now()) {
		return types.User{}, false
	}
	return m.current.User, true
}

func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}
