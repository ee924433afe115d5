// Package app contains the core quiz use cases: driving a participant through
// a timed test, arbitrating answers against per-question deadlines, and handing
// finished results to persistence and the ranking aggregator.
package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"quizrank-service/internal/domain"
)

// SessionRepository abstracts how live sessions are stored, keyed by
// participant identity. Creating a session for a participant who already has
// one replaces it; the replaced session comes back closed so the caller can
// report the abandonment. Remove takes the session itself and deletes only if
// it is still the one installed for its participant, so a finalizing session
// can never evict a successor created while it was being torn down.
type SessionRepository interface {
	Create(session *Session) (replaced *Session)
	Get(participantID string) (*Session, bool)
	Remove(session *Session)
}

// TestRepository resolves published tests by code (from cache/backing store).
type TestRepository interface {
	GetTest(ctx context.Context, code string) (domain.Test, error)
}

// ResultStore is the durable side of a finished session.
type ResultStore interface {
	AppendResult(ctx context.Context, res domain.Result) error
	UpsertUser(ctx context.Context, u domain.User) error
}

// RankingRecorder folds finished results into the rolling leaderboards.
type RankingRecorder interface {
	Record(res domain.Result)
	Rank(participantID string) (int, bool)
}

// Transport delivers prompts to participants. Sends are fire-and-forget;
// implementations log failures and never fail the session.
type Transport interface {
	PresentQuestion(participantID string, view domain.QuestionView)
	NotifyTimeout(participantID string, questionIndex int)
	PresentResult(participantID string, view domain.ResultView)
	NotifyAdmins(summary domain.AdminSummary)
}

// SessionEngine drives one participant through one test end-to-end.
type SessionEngine struct {
	sessions  SessionRepository
	tests     TestRepository
	store     ResultStore
	ranking   RankingRecorder
	transport Transport

	now       func() time.Time
	afterFunc func(d time.Duration, fn func())
}

// EngineConfig wires the engine's collaborators. Now and AfterFunc default to
// the real clock and are overridable for deterministic tests.
type EngineConfig struct {
	Sessions  SessionRepository
	Tests     TestRepository
	Store     ResultStore
	Ranking   RankingRecorder
	Transport Transport

	Now       func() time.Time
	AfterFunc func(d time.Duration, fn func())
}

func NewSessionEngine(c EngineConfig) *SessionEngine {
	e := &SessionEngine{
		sessions:  c.Sessions,
		tests:     c.Tests,
		store:     c.Store,
		ranking:   c.Ranking,
		transport: c.Transport,
		now:       c.Now,
		afterFunc: c.AfterFunc,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.afterFunc == nil {
		e.afterFunc = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	return e
}

// Start begins a session on the test identified by code. A participant's
// previous incomplete session, if any, is discarded; its timers become
// harmless the moment it is closed.
func (e *SessionEngine) Start(ctx context.Context, code, participantID, displayName, username string) error {
	test, err := e.tests.GetTest(ctx, code)
	if err != nil {
		return err
	}
	if len(test.Questions) == 0 {
		return domain.ErrInvalidTest
	}

	session := NewSessionWithClock(participantID, displayName, username, test, e.now)
	if replaced := e.sessions.Create(session); replaced != nil {
		log.Printf("session: participant %s abandoned %s at question %d",
			participantID, replaced.Test().Code, replaced.CurrentIndex())
	}

	idx, gen := session.armSlot()
	e.armTimer(session, idx, gen)
	e.transport.PresentQuestion(participantID, questionView(test, idx))
	return nil
}

// SubmitAnswer records a participant's answer for the question at
// claimedIndex. Answers for any other index are stale and rejected with
// domain.ErrStaleAnswer, which transports may silently drop.
func (e *SessionEngine) SubmitAnswer(ctx context.Context, participantID string, claimedIndex, selected int) error {
	session, ok := e.sessions.Get(participantID)
	if !ok {
		return domain.ErrNoActiveSession
	}

	adv, err := session.resolveAnswer(claimedIndex, selected)
	if err != nil {
		return err
	}
	e.continueSession(ctx, session, adv)
	return nil
}

// Cancel discards a participant's live session, if any.
func (e *SessionEngine) Cancel(participantID string) {
	if session, ok := e.sessions.Get(participantID); ok {
		e.sessions.Remove(session)
	}
}

// armTimer schedules the deadline for the question at (index, generation). The
// callback captures the session object itself, not the participant key, so a
// firing that outlives the session can never touch a successor session.
func (e *SessionEngine) armTimer(session *Session, index int, generation uint64) {
	limit := time.Duration(session.Test().TimeLimitSeconds) * time.Second
	e.afterFunc(limit, func() {
		e.handleTimeout(session, index, generation)
	})
}

func (e *SessionEngine) handleTimeout(session *Session, index int, generation uint64) {
	adv, ok := session.resolveTimeout(index, generation)
	if !ok {
		// Stale firing: the participant answered in time or the session ended.
		return
	}
	e.transport.NotifyTimeout(session.ParticipantID(), index)
	e.continueSession(context.Background(), session, adv)
}

func (e *SessionEngine) continueSession(ctx context.Context, session *Session, adv advance) {
	if !adv.finished {
		e.armTimer(session, adv.nextIndex, adv.nextGeneration)
		e.transport.PresentQuestion(session.ParticipantID(), questionView(session.Test(), adv.nextIndex))
		return
	}
	e.finalize(ctx, session)
}

func (e *SessionEngine) finalize(ctx context.Context, session *Session) {
	res := session.buildResult(uuid.NewString(), e.now())

	// Persistence failures degrade to best-effort: the participant still sees
	// their score and the in-memory ranking still counts it.
	if err := e.store.AppendResult(ctx, res); err != nil {
		log.Printf("session: append result %s: %v", res.ID, err)
	}
	if err := e.store.UpsertUser(ctx, domain.User{
		ID:       res.ParticipantID,
		Name:     res.DisplayName,
		Username: res.Username,
		LastSeen: res.CompletedAt,
	}); err != nil {
		log.Printf("session: upsert user %s: %v", res.ParticipantID, err)
	}

	e.ranking.Record(res)
	e.sessions.Remove(session)

	e.transport.PresentResult(res.ParticipantID, domain.ResultView{
		DisplayName:    res.DisplayName,
		TestName:       res.TestName,
		Score:          res.Score,
		TotalQuestions: res.TotalQuestions,
		Percent:        percent(res.Score, res.TotalQuestions),
	})

	summary := domain.AdminSummary{
		TestName:       res.TestName,
		TestCode:       res.TestCode,
		ParticipantID:  res.ParticipantID,
		DisplayName:    res.DisplayName,
		Username:       res.Username,
		Score:          res.Score,
		TotalQuestions: res.TotalQuestions,
		Percent:        percent(res.Score, res.TotalQuestions),
		CompletedAt:    res.CompletedAt,
	}
	if pos, ok := e.ranking.Rank(res.ParticipantID); ok {
		summary.RankPosition = pos
	}
	e.transport.NotifyAdmins(summary)
}

func questionView(test domain.Test, index int) domain.QuestionView {
	q := test.Questions[index]
	return domain.QuestionView{
		TestName:         test.Name,
		QuestionIndex:    index,
		TotalQuestions:   len(test.Questions),
		Text:             q.Text,
		Options:          q.Options,
		TimeLimitSeconds: test.TimeLimitSeconds,
	}
}

func percent(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(score) / float64(total) * 100
}
