package memory

import (
	"context"
	"sort"
	"sync"

	"quizrank-service/internal/app"
	"quizrank-service/internal/domain"
)

// Archive decorates a durable store with an in-memory index of results and
// users, so the admin views (results per test, registered users) never touch
// persistence on the read path. Writes go to the underlying store first; the
// index is updated regardless, matching the best-effort policy for failed
// durable writes.
type Archive struct {
	store app.Store

	mu      sync.RWMutex
	results map[string][]domain.Result // keyed by test code
	users   map[string]domain.User
}

func NewArchive(store app.Store, snap domain.Snapshot) *Archive {
	a := &Archive{
		store:   store,
		results: make(map[string][]domain.Result),
		users:   make(map[string]domain.User, len(snap.Users)),
	}
	for _, res := range snap.Results {
		a.results[res.TestCode] = append(a.results[res.TestCode], res)
	}
	for _, u := range snap.Users {
		a.users[u.ID] = u
	}
	return a
}

func (a *Archive) LoadAll(ctx context.Context) (domain.Snapshot, error) {
	return a.store.LoadAll(ctx)
}

func (a *Archive) AppendResult(ctx context.Context, res domain.Result) error {
	err := a.store.AppendResult(ctx, res)

	a.mu.Lock()
	a.results[res.TestCode] = append(a.results[res.TestCode], res)
	a.mu.Unlock()
	return err
}

func (a *Archive) UpsertTest(ctx context.Context, test domain.Test) error {
	return a.store.UpsertTest(ctx, test)
}

func (a *Archive) UpsertUser(ctx context.Context, u domain.User) error {
	err := a.store.UpsertUser(ctx, u)

	a.mu.Lock()
	a.users[u.ID] = u
	a.mu.Unlock()
	return err
}

// ResultsByTest returns the chronological result log of one test.
func (a *Archive) ResultsByTest(code string) []domain.Result {
	a.mu.RLock()
	defer a.mu.RUnlock()

	results := make([]domain.Result, len(a.results[code]))
	copy(results, a.results[code])
	return results
}

// Users lists registered participants, most recently seen first.
func (a *Archive) Users() []domain.User {
	a.mu.RLock()
	defer a.mu.RUnlock()

	users := make([]domain.User, 0, len(a.users))
	for _, u := range a.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].LastSeen.Equal(users[j].LastSeen) {
			return users[i].LastSeen.After(users[j].LastSeen)
		}
		return users[i].ID < users[j].ID
	})
	return users
}
