// Package ranking reduces the result log into bi-weekly leaderboards and
// period-over-period standings.
package ranking

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"quizrank-service/internal/domain"
)

// Entry is one participant's cumulative standing inside a period.
type Entry struct {
	ParticipantID  string          `json:"participantId"`
	Name           string          `json:"name"`
	Username       string          `json:"username,omitempty"`
	TotalScore     int             `json:"totalScore"`
	TotalQuestions int             `json:"totalQuestions"`
	TestCount      int             `json:"testCount"`
	AveragePercent decimal.Decimal `json:"averagePercent"`
}

// Change pairs a current-period entry with its movement since the previous period.
type Change struct {
	Entry        Entry `json:"entry"`
	CurrentRank  int   `json:"currentRank"`
	PreviousRank int   `json:"previousRank,omitempty"` // 0 when New
	Delta        int   `json:"delta"`                  // positive = climbed
	New          bool  `json:"new"`
}

type totals struct {
	name           string
	username       string
	totalScore     int
	totalQuestions int
	testCount      int
}

// Aggregator buckets finished results into periods and serves rankings.
// Buckets are rebuilt from the durable result log at startup, so the
// aggregator itself holds no state worth persisting.
type Aggregator struct {
	now func() time.Time

	mu      sync.RWMutex
	buckets map[Period]map[string]*totals
}

func NewAggregator() *Aggregator {
	return NewAggregatorWithClock(time.Now)
}

// NewAggregatorWithClock allows deterministic periods in tests.
func NewAggregatorWithClock(now func() time.Time) *Aggregator {
	return &Aggregator{
		now:     now,
		buckets: make(map[Period]map[string]*totals),
	}
}

// Record folds one result into its period bucket. The period is derived from
// the result's completion time, not the wall clock, so replaying the log at
// startup lands every result in the right window.
func (a *Aggregator) Record(res domain.Result) {
	period := PeriodOf(res.CompletedAt)

	a.mu.Lock()
	defer a.mu.Unlock()

	bucket, ok := a.buckets[period]
	if !ok {
		bucket = make(map[string]*totals)
		a.buckets[period] = bucket
	}

	t, ok := bucket[res.ParticipantID]
	if !ok {
		t = &totals{}
		bucket[res.ParticipantID] = t
	}
	t.name = res.DisplayName
	t.username = res.Username
	t.totalScore += res.Score
	t.totalQuestions += res.TotalQuestions
	t.testCount++
}

// Current returns the ranking for the period containing now.
func (a *Aggregator) Current() []Entry {
	return a.ranking(PeriodOf(a.now()))
}

// Previous returns the ranking for the period before the current one.
func (a *Aggregator) Previous() []Entry {
	return a.ranking(PeriodOf(a.now()).Previous())
}

// Rank reports the 1-based position of a participant in the current ranking.
func (a *Aggregator) Rank(participantID string) (int, bool) {
	for i, e := range a.Current() {
		if e.ParticipantID == participantID {
			return i + 1, true
		}
	}
	return 0, false
}

// Compare pairs every current-period participant with their previous-period
// rank. Participants absent from the previous period are tagged new. A missing
// or empty previous bucket is not an error; everyone simply shows up as new.
func (a *Aggregator) Compare() []Change {
	current := a.Current()
	previous := a.Previous()

	prevRank := make(map[string]int, len(previous))
	for i, e := range previous {
		prevRank[e.ParticipantID] = i + 1
	}

	changes := make([]Change, 0, len(current))
	for i, e := range current {
		c := Change{Entry: e, CurrentRank: i + 1}
		if prev, ok := prevRank[e.ParticipantID]; ok {
			c.PreviousRank = prev
			c.Delta = prev - c.CurrentRank
		} else {
			c.New = true
		}
		changes = append(changes, c)
	}
	return changes
}

func (a *Aggregator) ranking(period Period) []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	bucket := a.buckets[period]
	entries := make([]Entry, 0, len(bucket))
	for id, t := range bucket {
		entries = append(entries, Entry{
			ParticipantID:  id,
			Name:           t.name,
			Username:       t.username,
			TotalScore:     t.totalScore,
			TotalQuestions: t.totalQuestions,
			TestCount:      t.testCount,
			AveragePercent: averagePercent(t.totalScore, t.totalQuestions),
		})
	}

	// Average percentage descending, cumulative score descending, then name for
	// a stable order between otherwise identical participants.
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].AveragePercent.Cmp(entries[j].AveragePercent); c != 0 {
			return c > 0
		}
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// averagePercent recomputes from cumulative totals. Averaging the per-test
// percentages instead would skew the ranking toward low-volume participants.
func averagePercent(score, questions int) decimal.Decimal {
	if questions == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(score) * 100).
		DivRound(decimal.NewFromInt(int64(questions)), 1)
}
