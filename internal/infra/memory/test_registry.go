package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizrank-service/internal/domain"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

// TestLoader fetches a published test from a backing store on registry miss.
type TestLoader interface {
	LoadTest(ctx context.Context, code string) (domain.Test, error)
}

// TestRegistry holds every published test, seeded from persistence at startup.
// An optional loader serves misses (e.g. a test published by another instance),
// deduplicated with singleflight.
type TestRegistry struct {
	loader TestLoader
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	tests map[string]domain.Test
}

func NewTestRegistry(seed []domain.Test, loader TestLoader) *TestRegistry {
	r := &TestRegistry{
		loader: loader,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		tests:  make(map[string]domain.Test, len(seed)),
	}
	for _, t := range seed {
		r.tests[t.Code] = t
	}
	return r
}

func (r *TestRegistry) GetTest(ctx context.Context, code string) (domain.Test, error) {
	r.mu.RLock()
	test, ok := r.tests[code]
	r.mu.RUnlock()
	if ok {
		return test, nil
	}

	if r.loader == nil {
		return domain.Test{}, domain.ErrTestNotFound
	}

	result, err, _ := r.sf.Do(code, func() (interface{}, error) {
		test, err := r.loader.LoadTest(ctx, code)
		if err != nil {
			return domain.Test{}, err
		}
		r.mu.Lock()
		r.tests[code] = test
		r.mu.Unlock()
		return test, nil
	})
	if err != nil {
		return domain.Test{}, err
	}
	return result.(domain.Test), nil
}

// Publish assigns the test a fresh unique code and registers it. Persisting
// the published test is the caller's responsibility.
func (r *TestRegistry) Publish(test domain.Test) domain.Test {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := r.generateCodeLocked()
	for _, taken := r.tests[code]; taken; _, taken = r.tests[code] {
		code = r.generateCodeLocked()
	}
	test.Code = code
	r.tests[code] = test
	return test
}

// ListTests returns all published tests, newest first.
func (r *TestRegistry) ListTests() []domain.Test {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tests := make([]domain.Test, 0, len(r.tests))
	for _, t := range r.tests {
		tests = append(tests, t)
	}
	sort.Slice(tests, func(i, j int) bool {
		if !tests[i].CreatedAt.Equal(tests[j].CreatedAt) {
			return tests[i].CreatedAt.After(tests[j].CreatedAt)
		}
		return tests[i].Code < tests[j].Code
	})
	return tests
}

func (r *TestRegistry) generateCodeLocked() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[r.rnd.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// StaticTestLoader is a loader backed by a fixed map (useful for tests/demos).
type StaticTestLoader struct {
	tests map[string]domain.Test
}

func NewStaticTestLoader(tests map[string]domain.Test) *StaticTestLoader {
	return &StaticTestLoader{tests: tests}
}

func (l *StaticTestLoader) LoadTest(_ context.Context, code string) (domain.Test, error) {
	if t, ok := l.tests[code]; ok {
		return t, nil
	}
	return domain.Test{}, domain.ErrTestNotFound
}
