package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"destination_assistant/pkg"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists sessions between turns. Implementations hand out copies, so
// a caller must Save after mutating a loaded session.
type Store interface {
	Load(ctx context.Context, id string) (*pkg.Session, error)
	Save(ctx context.Context, session *pkg.Session) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*pkg.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*pkg.Session)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*pkg.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, session *pkg.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session id is required")
	}
	session.UpdatedAt = time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
