package bot

import (
	"context"
	"sync"

	"subscription-bot/internal/models"
)

// SessionStore holds conversation state between updates.
type SessionStore interface {
	Get(ctx context.Context, telegramID int64) (models.Session, bool, error)
	Save(ctx context.Context, session models.Session) error
	Delete(ctx context.Context, telegramID int64) error
}

// MemorySessionStore keeps sessions in process memory; they are lost on restart.
type MemorySessionStore struct {
	sessions map[int64]models.Session
	mu       sync.RWMutex
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int64]models.Session)}
}

func (s *MemorySessionStore) Get(_ context.Context, telegramID int64) (models.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[telegramID]
	return session, ok, nil
}

func (s *MemorySessionStore) Save(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.TelegramID] = session
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, telegramID)
	return nil
}
