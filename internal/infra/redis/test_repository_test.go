package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizrank-service/internal/domain"
	"quizrank-service/internal/infra/memory"
)

func TestTestRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		TestLoader: memory.NewStaticTestLoader(map[string]domain.Test{
			"ABC123": sampleTest(),
		}),
	}
	repo := NewTestRepository(client, loader, time.Minute)

	test, err := repo.LoadTest(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("load test: %v", err)
	}
	if test.Name != "Sample" || len(test.Questions) != 1 {
		t.Fatalf("unexpected test: %+v", test)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("test:ABC123") {
		t.Fatalf("expected test cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	if _, err := repo.LoadTest(context.Background(), "ABC123"); err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestTestRepositoryMissPropagates(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewTestRepository(newClient(mr), memory.NewStaticTestLoader(nil), time.Minute)

	if _, err := repo.LoadTest(context.Background(), "NOPE99"); err == nil {
		t.Fatalf("expected error for unknown code")
	}
	if mr.Exists("test:NOPE99") {
		t.Fatalf("miss must not be cached")
	}
}

func TestInvalidateDropsCacheEntry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{
		TestLoader: memory.NewStaticTestLoader(map[string]domain.Test{
			"ABC123": sampleTest(),
		}),
	}
	repo := NewTestRepository(client, loader, time.Minute)

	if _, err := repo.LoadTest(context.Background(), "ABC123"); err != nil {
		t.Fatalf("load: %v", err)
	}
	repo.Invalidate(context.Background(), "ABC123")
	if mr.Exists("test:ABC123") {
		t.Fatalf("expected cache entry removed")
	}

	if _, err := repo.LoadTest(context.Background(), "ABC123"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected loader hit after invalidate, calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.TestLoader
	calls int
}

func (l *countingLoader) LoadTest(ctx context.Context, code string) (domain.Test, error) {
	l.calls++
	return l.TestLoader.LoadTest(ctx, code)
}

func sampleTest() domain.Test {
	return domain.Test{
		Code: "ABC123",
		Name: "Sample",
		Questions: []domain.Question{
			{Text: "What is 2 + 2?", Options: []string{"3", "4"}, CorrectIndex: 1},
		},
		TimeLimitSeconds: 30,
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
