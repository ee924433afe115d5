package file

import (
	"context"
	"testing"
	"time"

	"quizrank-service/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.LoadAll(ctx); err != nil {
		t.Fatalf("load empty: %v", err)
	}

	test := domain.Test{
		Code:             "ABC123",
		Name:             "Sample",
		Questions:        []domain.Question{{Text: "Pick B", Options: []string{"A", "B"}, CorrectIndex: 1}},
		TimeLimitSeconds: 30,
		CreatedBy:        "admin-1",
		CreatedAt:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := store.UpsertTest(ctx, test); err != nil {
		t.Fatalf("upsert test: %v", err)
	}

	user := domain.User{ID: "u1", Name: "Alice", LastSeen: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	if err := store.UpsertUser(ctx, user); err != nil {
		t.Fatalf("upsert user: %v", err)
	}

	res := domain.Result{
		ID:             "r1",
		ParticipantID:  "u1",
		DisplayName:    "Alice",
		TestCode:       "ABC123",
		TestName:       "Sample",
		Score:          1,
		TotalQuestions: 1,
		Answers:        []domain.AnswerRecord{{QuestionIndex: 0, Question: "Pick B", Selected: 1, CorrectOption: 1, Correct: true}},
		CompletedAt:    time.Date(2026, 3, 2, 10, 5, 0, 0, time.UTC),
		ElapsedSeconds: 42,
	}
	if err := store.AppendResult(ctx, res); err != nil {
		t.Fatalf("append result: %v", err)
	}

	// A fresh store over the same directory sees everything.
	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	snap, err := reopened.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}

	if len(snap.Tests) != 1 || snap.Tests[0].Code != "ABC123" || len(snap.Tests[0].Questions) != 1 {
		t.Fatalf("unexpected tests: %+v", snap.Tests)
	}
	if len(snap.Users) != 1 || snap.Users[0].Name != "Alice" {
		t.Fatalf("unexpected users: %+v", snap.Users)
	}
	if len(snap.Results) != 1 {
		t.Fatalf("unexpected results: %+v", snap.Results)
	}
	got := snap.Results[0]
	if got.Score != 1 || got.ElapsedSeconds != 42 || !got.CompletedAt.Equal(res.CompletedAt) {
		t.Fatalf("result round trip mismatch: %+v", got)
	}
	if len(got.Answers) != 1 || got.Answers[0].Selected != 1 {
		t.Fatalf("answer round trip mismatch: %+v", got.Answers)
	}
}

func TestResultsAppendInOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"r1", "r2", "r3"} {
		err := store.AppendResult(ctx, domain.Result{
			ID:          id,
			TestCode:    "ABC123",
			Score:       i,
			CompletedAt: time.Date(2026, 3, 1, 10, i, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	snap, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(snap.Results))
	}
	for i, want := range []string{"r1", "r2", "r3"} {
		if snap.Results[i].ID != want {
			t.Fatalf("log order broken at %d: %+v", i, snap.Results)
		}
	}
}

func TestUpsertTestReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	test := domain.Test{Code: "ABC123", Name: "Before"}
	if err := store.UpsertTest(ctx, test); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	test.Name = "After"
	if err := store.UpsertTest(ctx, test); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	snap, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Tests) != 1 || snap.Tests[0].Name != "After" {
		t.Fatalf("expected single replaced test, got %+v", snap.Tests)
	}
}
