// Package redis provides a cache layer in front of the durable stores so a
// fleet of instances can share published tests and session liveness.
package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizrank-service/internal/domain"
	"quizrank-service/internal/infra/memory"
)

// TestRepository caches published tests in Redis as one JSON blob per code
// and falls back to a loader on cache miss. Cache fills are deduplicated with
// singleflight so a popular code hits the backing store once.
type TestRepository struct {
	client *redis.Client
	loader memory.TestLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewTestRepository(client *redis.Client, loader memory.TestLoader, ttl time.Duration) *TestRepository {
	return &TestRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *TestRepository) LoadTest(ctx context.Context, code string) (domain.Test, error) {
	if test, ok := r.fromCache(ctx, code); ok {
		return test, nil
	}

	result, err, _ := r.sf.Do(code, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if test, ok := r.fromCache(ctx, code); ok {
			return test, nil
		}

		test, err := r.loader.LoadTest(ctx, code)
		if err != nil {
			return domain.Test{}, err
		}

		if data, err := json.Marshal(test); err == nil {
			_ = r.client.Set(ctx, r.key(code), data, r.ttlWithJitter()).Err()
		}
		return test, nil
	})
	if err != nil {
		return domain.Test{}, err
	}
	return result.(domain.Test), nil
}

// Invalidate drops a cached test, used when an admin republishes content.
func (r *TestRepository) Invalidate(ctx context.Context, code string) {
	_ = r.client.Del(ctx, r.key(code)).Err()
}

func (r *TestRepository) fromCache(ctx context.Context, code string) (domain.Test, bool) {
	raw, err := r.client.Get(ctx, r.key(code)).Bytes()
	if err != nil {
		return domain.Test{}, false
	}
	var test domain.Test
	if err := json.Unmarshal(raw, &test); err != nil {
		return domain.Test{}, false
	}
	return test, true
}

func (r *TestRepository) key(code string) string {
	return "test:" + code
}

func (r *TestRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
