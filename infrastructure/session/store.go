// Package session keeps the sticky filter selections of browser sessions.
package session

import (
	"sync"
	"time"

	"ixp-grapher/application/ports"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Manager hands out per-session stores. Sessions expire ttl after their
// last use.
type Manager struct {
	sessions *gocache.Cache
	ttl      time.Duration
	mu       sync.Mutex
}

// NewManager creates a session manager
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: gocache.New(ttl, ttl/2),
		ttl:      ttl,
	}
}

// NewID returns a fresh session id.
func (m *Manager) NewID() string {
	return uuid.NewString()
}

// Valid reports whether id is well formed; ids are never trusted as keys
// otherwise.
func (m *Manager) Valid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Store returns the store of session id, creating it on first use.
func (m *Manager) Store(id string) ports.SessionStore {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.sessions.Get(id); ok {
		s := v.(*store)
		m.sessions.Set(id, s, m.ttl)
		return s
	}
	s := &store{values: make(map[string]string)}
	m.sessions.Set(id, s, m.ttl)
	return s
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.sessions.ItemCount()
}

type store struct {
	mu     sync.RWMutex
	values map[string]string
}

func (s *store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *store) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}
