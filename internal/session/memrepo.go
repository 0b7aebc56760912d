package session

import (
	"context"
	"sync"

	"github.com/kapu/balda-server/internal/board"
)

// memrepo is an in-memory Repository used when no DATABASE_URL is
// configured (development and tests).
type memrepo struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	profiles map[string]*Profile
}

func NewMemoryRepository() Repository {
	return &memrepo{
		sessions: make(map[string]*Session),
		profiles: make(map[string]*Profile),
	}
}

func (m *memrepo) SaveSession(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Moves = append([]board.Move(nil), s.Moves...)
	m.mu.Lock()
	m.sessions[s.ID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *memrepo) LoadSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	cp.Moves = append([]board.Move(nil), s.Moves...)
	return &cp, nil
}

func (m *memrepo) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memrepo) UpsertProfile(ctx context.Context, p *Profile) error {
	if p == nil {
		return nil
	}
	cp := *p
	m.mu.Lock()
	m.profiles[p.UserID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *memrepo) Close() error { return nil }
