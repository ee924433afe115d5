package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizrank-service/internal/app"
)

// SessionStore is a Redis-aware SessionRepository. Sessions themselves stay
// in the local map because their timers and mutexes are in-process state;
// Redis holds a liveness marker per participant so other instances (and ops
// tooling) can see who is mid-test. The marker TTL acts as a backstop when an
// instance dies without removing its sessions.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.Mutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Create(session *app.Session) *app.Session {
	s.mu.Lock()
	replaced := s.sessions[session.ParticipantID()]
	if replaced != nil {
		replaced.Close()
	}
	s.sessions[session.ParticipantID()] = session
	s.mu.Unlock()

	_ = s.client.Set(context.Background(), s.key(session.ParticipantID()), session.Test().Code, s.ttl).Err()
	return replaced
}

func (s *SessionStore) Get(participantID string) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[participantID]
	return session, ok
}

// Remove closes the session; the map entry and liveness key are dropped only
// if this session is still the installed one, so a successor created during
// finalize keeps both.
func (s *SessionStore) Remove(session *app.Session) {
	participantID := session.ParticipantID()

	s.mu.Lock()
	session.Close()
	installed := s.sessions[participantID] == session
	if installed {
		delete(s.sessions, participantID)
	}
	s.mu.Unlock()

	if installed {
		_ = s.client.Del(context.Background(), s.key(participantID)).Err()
	}
}

func (s *SessionStore) key(participantID string) string {
	return "session:" + participantID
}
