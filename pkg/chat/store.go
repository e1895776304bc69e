package chat

import (
	"context"
	"sync"
)

// Store persists transcripts. Implementations must keep append order.
type Store interface {
	Append(ctx context.Context, sessionID string, msgs ...Message) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// MemoryStore offers a threadsafe in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*Session{}}
}

func (m *MemoryStore) Append(_ context.Context, sessionID string, msgs ...Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		sess = NewSession(sessionID)
		m.sessions[sessionID] = sess
	}
	sess.Append(msgs...)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Snapshot(), nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Storage is a small key/value surface for client-side state such as the
// current session id.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MapStorage is an in-memory Storage.
type MapStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMapStorage returns an empty MapStorage.
func NewMapStorage() *MapStorage {
	return &MapStorage{values: map[string]string{}}
}

func (s *MapStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MapStorage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}
