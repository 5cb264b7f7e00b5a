package conversation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// SessionStore persists sessions with optimistic versioning.
//
// Create builds an unsaved session (version 0) without touching storage.
// Save inserts a version 0 session and otherwise replaces the stored copy only
// if its version still matches; on success the session's Version is bumped.
// A lost race returns ErrVersionConflict.
type SessionStore interface {
	Find(ctx context.Context, sessionID string) (*Session, error)
	Create(ctx context.Context, sessionID string, initial State) (*Session, error)
	Save(ctx context.Context, session *Session) error
	List(ctx context.Context) ([]*Session, error)
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (s *MemoryStore) Find(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return stored.Clone(), nil
}

func (s *MemoryStore) Create(_ context.Context, sessionID string, initial State) (*Session, error) {
	return NewSession(sessionID, initial, s.now().UTC()), nil
}

func (s *MemoryStore) Save(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.sessions[session.ID]
	switch {
	case session.Version == 0 && exists:
		return ErrVersionConflict
	case session.Version != 0 && (!exists || stored.Version != session.Version):
		return ErrVersionConflict
	}

	session.Version++
	session.UpdatedAt = s.now().UTC()
	s.sessions[session.ID] = session.Clone()
	return nil
}

// List returns every session ordered by creation time.
func (s *MemoryStore) List(_ context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	sortSessions(out)
	return out, nil
}

func sortSessions(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
