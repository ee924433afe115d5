package domain

import "errors"

var (
	// ErrInvalidTest rejects starting a session on a test with no questions.
	ErrInvalidTest = errors.New("test has no questions")
	// ErrNoActiveSession is returned when an answer arrives for a participant with no live session.
	ErrNoActiveSession = errors.New("no active session for participant")
	// ErrStaleAnswer is returned when an answer's claimed question index no longer
	// matches the session. Callers may drop it silently; it is the expected fate of
	// the loser of the answer-vs-timeout race.
	ErrStaleAnswer = errors.New("stale answer")
	// ErrTestNotFound indicates an unknown test code.
	ErrTestNotFound = errors.New("test not found")
)
