package ranking

import (
	"testing"
	"time"

	"quizrank-service/internal/domain"
)

var testClock = func() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func result(participant, name string, score, total int, at time.Time) domain.Result {
	return domain.Result{
		ParticipantID:  participant,
		DisplayName:    name,
		TestCode:       "ABC123",
		TestName:       "Sample",
		Score:          score,
		TotalQuestions: total,
		CompletedAt:    at,
	}
}

func TestAverageRecomputedFromCumulativeTotals(t *testing.T) {
	agg := NewAggregatorWithClock(testClock)
	now := testClock()

	// 3/5 then 9/10: cumulative average is 12/15 = 80.0%, not (60+90)/2 = 75.0%.
	agg.Record(result("u1", "Alice", 3, 5, now))
	agg.Record(result("u1", "Alice", 9, 10, now))

	entries := agg.Current()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.TotalScore != 12 || e.TotalQuestions != 15 || e.TestCount != 2 {
		t.Fatalf("unexpected totals: %+v", e)
	}
	if got := e.AveragePercent.String(); got != "80" {
		t.Fatalf("expected cumulative average 80, got %s", got)
	}
}

func TestAverageRoundsToOneDecimal(t *testing.T) {
	agg := NewAggregatorWithClock(testClock)
	agg.Record(result("u1", "Alice", 2, 3, testClock()))

	if got := agg.Current()[0].AveragePercent.String(); got != "66.7" {
		t.Fatalf("expected 66.7, got %s", got)
	}
}

func TestRankingTieBreakByCumulativeScore(t *testing.T) {
	agg := NewAggregatorWithClock(testClock)
	now := testClock()

	// Both average 80.0%; A has the larger cumulative score and must rank first.
	agg.Record(result("a", "Ann", 12, 15, now))
	agg.Record(result("b", "Bob", 8, 10, now))

	entries := agg.Current()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ParticipantID != "a" || entries[1].ParticipantID != "b" {
		t.Fatalf("expected a before b, got %s, %s", entries[0].ParticipantID, entries[1].ParticipantID)
	}
}

func TestRankingSortsByAverageFirst(t *testing.T) {
	agg := NewAggregatorWithClock(testClock)
	now := testClock()

	agg.Record(result("low", "Lou", 20, 40, now))  // 50.0% but huge volume
	agg.Record(result("high", "Hal", 9, 10, now))  // 90.0%
	agg.Record(result("mid", "Mia", 7, 10, now))   // 70.0%

	entries := agg.Current()
	order := []string{"high", "mid", "low"}
	for i, want := range order {
		if entries[i].ParticipantID != want {
			t.Fatalf("position %d: expected %s, got %s", i+1, want, entries[i].ParticipantID)
		}
	}
}

func TestPreviousRankingUsesPriorPeriod(t *testing.T) {
	agg := NewAggregatorWithClock(testClock)
	prior := testClock().AddDate(0, 0, -14)

	agg.Record(result("u1", "Alice", 5, 5, prior))

	if got := len(agg.Current()); got != 0 {
		t.Fatalf("expected empty current period, got %d entries", got)
	}
	prev := agg.Previous()
	if len(prev) != 1 || prev[0].ParticipantID != "u1" {
		t.Fatalf("expected u1 in previous period, got %+v", prev)
	}
}

func TestCompare(t *testing.T) {
	agg := NewAggregatorWithClock(testClock)
	now := testClock()
	prior := now.AddDate(0, 0, -14)

	// Previous period: five participants, "mover" ranked 5th.
	for i, p := range []struct {
		id    string
		score int
	}{
		{"p1", 10}, {"p2", 9}, {"p3", 8}, {"p4", 7}, {"mover", 6},
	} {
		agg.Record(result(p.id, p.id, p.score, 10, prior.Add(time.Duration(i)*time.Minute)))
	}

	// Current period: mover climbs to rank 2, a newcomer appears.
	agg.Record(result("p1", "p1", 10, 10, now))
	agg.Record(result("mover", "mover", 9, 10, now))
	agg.Record(result("fresh", "fresh", 8, 10, now))

	changes := agg.Compare()
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d", len(changes))
	}

	byID := make(map[string]Change)
	for _, c := range changes {
		byID[c.Entry.ParticipantID] = c
	}

	mover := byID["mover"]
	if mover.CurrentRank != 2 || mover.PreviousRank != 5 || mover.Delta != 3 || mover.New {
		t.Fatalf("unexpected mover change: %+v", mover)
	}

	fresh := byID["fresh"]
	if !fresh.New || fresh.PreviousRank != 0 || fresh.Delta != 0 {
		t.Fatalf("expected fresh tagged new, got %+v", fresh)
	}

	top := byID["p1"]
	if top.CurrentRank != 1 || top.PreviousRank != 1 || top.Delta != 0 {
		t.Fatalf("unexpected p1 change: %+v", top)
	}
}

func TestCompareWithoutPreviousData(t *testing.T) {
	agg := NewAggregatorWithClock(testClock)
	agg.Record(result("u1", "Alice", 5, 5, testClock()))

	changes := agg.Compare()
	if len(changes) != 1 || !changes[0].New {
		t.Fatalf("expected single new entry, got %+v", changes)
	}
}

func TestRank(t *testing.T) {
	agg := NewAggregatorWithClock(testClock)
	now := testClock()
	agg.Record(result("a", "Ann", 10, 10, now))
	agg.Record(result("b", "Bob", 5, 10, now))

	if pos, ok := agg.Rank("b"); !ok || pos != 2 {
		t.Fatalf("expected b at rank 2, got %d ok=%v", pos, ok)
	}
	if _, ok := agg.Rank("missing"); ok {
		t.Fatalf("expected missing participant to have no rank")
	}
}
