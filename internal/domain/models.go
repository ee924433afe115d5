package domain

import "time"

// NoAnswer marks a question slot that was never answered (timeout).
const NoAnswer = -1

// Question is an immutable multiple-choice question with exactly one correct option.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"` // must be in [0, len(Options))
}

// Test is a published quiz. Immutable once published; sessions reference it, never copy it.
type Test struct {
	Code             string     `json:"code"`
	Name             string     `json:"name"`
	Questions        []Question `json:"questions"`
	TimeLimitSeconds int        `json:"timeLimitSeconds"` // per question
	CreatedBy        string     `json:"createdBy"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// User is a registered participant, upserted whenever they finish a test.
type User struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username,omitempty"`
	LastSeen time.Time `json:"lastSeen"`
}

// AnswerRecord is the per-question outcome inside a Result.
type AnswerRecord struct {
	QuestionIndex int    `json:"questionIndex"`
	Question      string `json:"question"`
	Selected      int    `json:"selected"` // NoAnswer when the question timed out
	CorrectOption int    `json:"correctOption"`
	Correct       bool   `json:"correct"`
}

// Result is the durable record of one finished session. Append-only; the test
// name is snapshotted so later edits never rewrite history.
type Result struct {
	ID             string         `json:"id"`
	ParticipantID  string         `json:"participantId"`
	DisplayName    string         `json:"displayName"`
	Username       string         `json:"username,omitempty"`
	TestCode       string         `json:"testCode"`
	TestName       string         `json:"testName"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Answers        []AnswerRecord `json:"answers"`
	CompletedAt    time.Time      `json:"completedAt"`
	ElapsedSeconds int            `json:"elapsedSeconds"`
}

// Snapshot is everything persistence hands back at startup.
type Snapshot struct {
	Tests   []Test
	Users   []User
	Results []Result
}

// QuestionView is what the transport renders for one question prompt.
type QuestionView struct {
	TestName         string   `json:"testName"`
	QuestionIndex    int      `json:"questionIndex"`
	TotalQuestions   int      `json:"totalQuestions"`
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
}

// ResultView is the participant-facing final score.
type ResultView struct {
	DisplayName    string  `json:"displayName"`
	TestName       string  `json:"testName"`
	Score          int     `json:"score"`
	TotalQuestions int     `json:"totalQuestions"`
	Percent        float64 `json:"percent"`
}

// AdminSummary is the completion notice sent to administrators.
type AdminSummary struct {
	TestName       string    `json:"testName"`
	TestCode       string    `json:"testCode"`
	ParticipantID  string    `json:"participantId"`
	DisplayName    string    `json:"displayName"`
	Username       string    `json:"username,omitempty"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Percent        float64   `json:"percent"`
	CompletedAt    time.Time `json:"completedAt"`
	RankPosition   int       `json:"rankPosition,omitempty"` // position in the current ranking period, 0 if unknown
}
