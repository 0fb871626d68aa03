package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Memory is an in-process Store. Sessions idle for longer than ttl are
// dropped; ttl <= 0 keeps them until cleared.
type Memory struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *Memory) expired(s *Session) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}

func (m *Memory) Get(_ context.Context, ownerID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(s) {
		delete(m.sessions, ownerID)
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *Memory) Save(_ context.Context, s *Session) error {
	c := s.Clone()
	c.UpdatedAt = m.now()
	m.mu.Lock()
	m.sessions[s.OwnerID] = c
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, ownerID int64) error {
	m.mu.Lock()
	delete(m.sessions, ownerID)
	m.mu.Unlock()
	return nil
}

// Sweep drops every expired session and returns how many were removed.
func (m *Memory) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("expired sessions dropped", "count", n)
			}
		}
	}
}
