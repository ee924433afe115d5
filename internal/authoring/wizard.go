// Package authoring implements the conversational test-creation flow: a
// sequential dialogue that gathers test metadata and questions from an
// administrator, one message at a time, and yields a publishable test.
package authoring

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"quizrank-service/internal/domain"
)

const (
	maxQuestions = 100
	minOptions   = 2
	maxOptions   = 6
)

type step int

const (
	stepName step = iota
	stepTimeLimit
	stepOptionCount
	stepQuestionCount
	stepQuestionText
	stepOption
	stepCorrect
)

type draft struct {
	step          step
	name          string
	timeLimit     int
	optionCount   int
	questionCount int
	questions     []domain.Question
	current       domain.Question
}

// Wizard tracks one in-progress test draft per administrator. It is a plain
// state machine over (draft, message); the transport layer feeds it text and
// relays the replies.
type Wizard struct {
	minTimeLimit int
	now          func() time.Time

	mu     sync.Mutex
	drafts map[string]*draft
}

func NewWizard(minTimeLimit int) *Wizard {
	return NewWizardWithClock(minTimeLimit, time.Now)
}

// NewWizardWithClock allows deterministic creation timestamps in tests.
func NewWizardWithClock(minTimeLimit int, now func() time.Time) *Wizard {
	return &Wizard{
		minTimeLimit: minTimeLimit,
		now:          now,
		drafts:       make(map[string]*draft),
	}
}

// Begin opens a fresh draft for the administrator, discarding any previous one.
func (w *Wizard) Begin(adminID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.drafts[adminID] = &draft{step: stepName}
	return "Creating a new test. What should it be called?"
}

// Active reports whether the administrator has a draft in progress.
func (w *Wizard) Active(adminID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.drafts[adminID]
	return ok
}

// Abort drops the administrator's draft, if any.
func (w *Wizard) Abort(adminID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.drafts, adminID)
}

// HandleMessage advances the draft with one message. The reply is the next
// prompt (or a re-prompt on invalid input). When the dialogue completes, the
// finished test is returned with an empty code and the draft is discarded;
// assigning a code and persisting are the caller's job.
func (w *Wizard) HandleMessage(adminID, text string) (string, *domain.Test) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, ok := w.drafts[adminID]
	if !ok {
		return "No test in progress. Send \"create\" to begin.", nil
	}

	text = strings.TrimSpace(text)

	switch d.step {
	case stepName:
		if text == "" {
			return "The test needs a name. What should it be called?", nil
		}
		d.name = text
		d.step = stepTimeLimit
		return fmt.Sprintf("Name saved: %s\nHow many seconds per question? (minimum %d)", d.name, w.minTimeLimit), nil

	case stepTimeLimit:
		limit, err := strconv.Atoi(text)
		if err != nil || limit < w.minTimeLimit {
			return fmt.Sprintf("Please enter a whole number of seconds, at least %d.", w.minTimeLimit), nil
		}
		d.timeLimit = limit
		d.step = stepOptionCount
		return fmt.Sprintf("Time limit saved: %ds per question.\nHow many answer options per question? (%d-%d)", limit, minOptions, maxOptions), nil

	case stepOptionCount:
		n, err := strconv.Atoi(text)
		if err != nil || n < minOptions || n > maxOptions {
			return fmt.Sprintf("Please enter a number between %d and %d.", minOptions, maxOptions), nil
		}
		d.optionCount = n
		d.step = stepQuestionCount
		return "How many questions will the test have?", nil

	case stepQuestionCount:
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 || n > maxQuestions {
			return fmt.Sprintf("Please enter a number between 1 and %d.", maxQuestions), nil
		}
		d.questionCount = n
		d.step = stepQuestionText
		return fmt.Sprintf("Question 1 of %d:\nSend the question text.", n), nil

	case stepQuestionText:
		if text == "" {
			return "Send the question text.", nil
		}
		d.current = domain.Question{Text: text}
		d.step = stepOption
		return "Send option 1:", nil

	case stepOption:
		if text == "" {
			return fmt.Sprintf("Send option %d:", len(d.current.Options)+1), nil
		}
		d.current.Options = append(d.current.Options, text)
		if len(d.current.Options) < d.optionCount {
			return fmt.Sprintf("Option %d saved. Send option %d:", len(d.current.Options), len(d.current.Options)+1), nil
		}
		d.step = stepCorrect
		var b strings.Builder
		b.WriteString("All options saved:\n")
		for i, opt := range d.current.Options {
			fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
		}
		fmt.Fprintf(&b, "Which one is correct? (1-%d)", d.optionCount)
		return b.String(), nil

	case stepCorrect:
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 || n > d.optionCount {
			return fmt.Sprintf("Please enter a number between 1 and %d.", d.optionCount), nil
		}
		d.current.CorrectIndex = n - 1
		d.questions = append(d.questions, d.current)
		d.current = domain.Question{}

		if len(d.questions) < d.questionCount {
			d.step = stepQuestionText
			return fmt.Sprintf("Question %d saved.\nQuestion %d of %d:\nSend the question text.",
				len(d.questions), len(d.questions)+1, d.questionCount), nil
		}

		test := &domain.Test{
			Name:             d.name,
			Questions:        d.questions,
			TimeLimitSeconds: d.timeLimit,
			CreatedBy:        adminID,
			CreatedAt:        w.now(),
		}
		delete(w.drafts, adminID)
		return "", test
	}

	return "No test in progress. Send \"create\" to begin.", nil
}
