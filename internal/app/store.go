package app

import (
	"context"

	"quizrank-service/internal/domain"
)

// Store is the full persistence contract: load everything once at startup,
// then durable appends/upserts. Writes must be serialized by implementations.
type Store interface {
	LoadAll(ctx context.Context) (domain.Snapshot, error)
	AppendResult(ctx context.Context, res domain.Result) error
	UpsertTest(ctx context.Context, test domain.Test) error
	UpsertUser(ctx context.Context, u domain.User) error
}
