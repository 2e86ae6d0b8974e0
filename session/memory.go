package session

import (
	"context"
	"slices"
	"sync"
	"time"
)

type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[Key]Session
}

// NewMemoryStore — ttl <= 0 отключает истечение
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, sessions: make(map[Key]Session)}
}

func (m *MemoryStore) Get(_ context.Context, key Key) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key]
	if !ok {
		return nil, nil
	}
	if m.expired(s) {
		delete(m.sessions, key)
		return nil, nil
	}
	s.Fields = slices.Clone(s.Fields)
	s.Pending = slices.Clone(s.Pending)
	return &s, nil
}

func (m *MemoryStore) Set(_ context.Context, key Key, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	cp.Fields = slices.Clone(s.Fields)
	cp.Pending = slices.Clone(s.Pending)
	cp.UpdatedAt = m.now()
	m.sessions[key] = cp
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, key Key) error {
	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()
	return nil
}

// Sweep удаляет истёкшие сессии и возвращает их количество
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, k)
			n++
		}
	}
	return n
}

func (m *MemoryStore) expired(s Session) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}
