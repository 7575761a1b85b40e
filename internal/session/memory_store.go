package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
	ttl      time.Duration
}

type memorySession struct {
	userID    string
	expiresAt time.Time
}

// NewMemoryStore builds an in-process session store for tests and dev mode.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{sessions: make(map[string]memorySession), ttl: ttl}
}

func (s *memoryStore) Create(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.sessions[id] = memorySession{userID: userID, expiresAt: time.Now().Add(s.ttl)}
	return id, nil
}

func (s *memoryStore) UserID(_ context.Context, sessionID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok || time.Now().After(sess.expiresAt) {
		return "", ErrNoSession
	}
	return sess.userID, nil
}

func (s *memoryStore) Destroy(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
