package memory

import (
	"sync"

	"quizrank-service/internal/app"
)

// SessionStore is the in-memory implementation of app.SessionRepository.
// Sessions are volatile by design; there is nothing to persist here.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

// Create installs the session for its participant. An existing session for the
// same participant is closed and returned so the caller can report the
// abandonment; closing it first guarantees its outstanding timers are stale
// before the new session becomes visible.
func (s *SessionStore) Create(session *app.Session) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := s.sessions[session.ParticipantID()]
	if replaced != nil {
		replaced.Close()
	}
	s.sessions[session.ParticipantID()] = session
	return replaced
}

func (s *SessionStore) Get(participantID string) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[participantID]
	return session, ok
}

// Remove closes the session and drops it only if it is still the installed
// one for its participant. A session finalizing after a restart must not
// evict its successor.
func (s *SessionStore) Remove(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.Close()
	if s.sessions[session.ParticipantID()] == session {
		delete(s.sessions, session.ParticipantID())
	}
}
