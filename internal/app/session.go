package app

import (
	"sync"
	"time"

	"quizrank-service/internal/domain"
	"quizrank-service/internal/scoring"
)

// Session is the volatile progress record of one participant through one test.
// It lives only in memory; a process restart discards it.
//
// All mutation funnels through resolveAnswer/resolveTimeout, which perform the
// atomic "advance if still current" step under the session mutex. The
// generation counter increments on every advance, so whichever of the user
// answer and the timeout loses the race finds a stale generation (or index) and
// becomes a no-op.
type Session struct {
	participantID string
	displayName   string
	username      string
	test          domain.Test
	now           func() time.Time

	mu                sync.Mutex
	currentIndex      int
	generation        uint64
	answers           []domain.AnswerRecord
	startedAt         time.Time
	questionStartedAt time.Time
	closed            bool
}

// NewSession is exported for session stores that need to seed sessions.
func NewSession(participantID, displayName, username string, test domain.Test) *Session {
	return NewSessionWithClock(participantID, displayName, username, test, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(participantID, displayName, username string, test domain.Test, now func() time.Time) *Session {
	start := now()
	return &Session{
		participantID:     participantID,
		displayName:       displayName,
		username:          username,
		test:              test,
		now:               now,
		answers:           make([]domain.AnswerRecord, 0, len(test.Questions)),
		startedAt:         start,
		questionStartedAt: start,
	}
}

func (s *Session) ParticipantID() string { return s.participantID }
func (s *Session) DisplayName() string   { return s.displayName }
func (s *Session) Test() domain.Test     { return s.test }

// CurrentIndex reports where the participant is right now.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

// Close marks the session dead. Any timer still carrying this session becomes
// stale regardless of its index and generation, so a superseding session can
// never be advanced by a leftover timer even when the counters coincide.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.generation++
}

// advance captures one accepted question transition.
type advance struct {
	record         domain.AnswerRecord
	nextIndex      int
	nextGeneration uint64
	finished       bool
}

// armSlot returns the (index, generation) pair a timer must carry to be honored.
func (s *Session) armSlot() (int, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex, s.generation
}

// resolveAnswer accepts a user answer if its claimed index is still current.
// Acceptance advances the generation immediately, invalidating any in-flight
// timer for the same question.
func (s *Session) resolveAnswer(claimedIndex, selected int) (advance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || claimedIndex != s.currentIndex || s.currentIndex >= len(s.test.Questions) {
		return advance{}, domain.ErrStaleAnswer
	}
	return s.advanceLocked(selected), nil
}

// resolveTimeout honors a timer firing only if the session is still alive and
// the timer's index and generation both still match; otherwise the firing is
// stale (the user already answered, or the session ended) and ok is false.
func (s *Session) resolveTimeout(questionIndex int, generation uint64) (advance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || questionIndex != s.currentIndex || generation != s.generation {
		return advance{}, false
	}
	return s.advanceLocked(domain.NoAnswer), true
}

func (s *Session) advanceLocked(selected int) advance {
	q := s.test.Questions[s.currentIndex]
	rec := domain.AnswerRecord{
		QuestionIndex: s.currentIndex,
		Question:      q.Text,
		Selected:      selected,
		CorrectOption: q.CorrectIndex,
		Correct:       scoring.Score(q, selected),
	}
	s.answers = append(s.answers, rec)
	s.generation++
	s.currentIndex++
	s.questionStartedAt = s.now()

	return advance{
		record:         rec,
		nextIndex:      s.currentIndex,
		nextGeneration: s.generation,
		finished:       s.currentIndex == len(s.test.Questions),
	}
}

// buildResult assembles the durable record once the final question resolved.
func (s *Session) buildResult(id string, completedAt time.Time) domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	score := 0
	answers := make([]domain.AnswerRecord, len(s.answers))
	copy(answers, s.answers)
	for _, a := range answers {
		if a.Correct {
			score++
		}
	}

	return domain.Result{
		ID:             id,
		ParticipantID:  s.participantID,
		DisplayName:    s.displayName,
		Username:       s.username,
		TestCode:       s.test.Code,
		TestName:       s.test.Name,
		Score:          score,
		TotalQuestions: len(s.test.Questions),
		Answers:        answers,
		CompletedAt:    completedAt,
		ElapsedSeconds: int(completedAt.Sub(s.startedAt) / time.Second),
	}
}
