// Package postgres persists tests, users and results as JSONB rows.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizrank-service/internal/domain"
)

// Store implements app.Store on a pgx connection pool. Records are stored as
// self-describing JSONB documents keyed by their natural identifiers; results
// are insert-only.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) LoadAll(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot

	if err := s.loadInto(ctx, `SELECT data FROM tests`, func(raw []byte) error {
		var t domain.Test
		if err := json.Unmarshal(raw, &t); err != nil {
			return err
		}
		snap.Tests = append(snap.Tests, t)
		return nil
	}); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load tests: %w", err)
	}

	if err := s.loadInto(ctx, `SELECT data FROM users`, func(raw []byte) error {
		var u domain.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return err
		}
		snap.Users = append(snap.Users, u)
		return nil
	}); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load users: %w", err)
	}

	if err := s.loadInto(ctx, `SELECT data FROM results ORDER BY completed_at, id`, func(raw []byte) error {
		var r domain.Result
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		snap.Results = append(snap.Results, r)
		return nil
	}); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load results: %w", err)
	}

	return snap, nil
}

func (s *Store) AppendResult(ctx context.Context, res domain.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (id, completed_at, data) VALUES ($1, $2, $3)`,
		res.ID, res.CompletedAt, data)
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

func (s *Store) UpsertTest(ctx context.Context, test domain.Test) error {
	data, err := json.Marshal(test)
	if err != nil {
		return fmt.Errorf("marshal test: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO tests (code, data) VALUES ($1, $2)
		 ON CONFLICT (code) DO UPDATE SET data = EXCLUDED.data`,
		test.Code, data)
	if err != nil {
		return fmt.Errorf("upsert test: %w", err)
	}
	return nil
}

func (s *Store) UpsertUser(ctx context.Context, u domain.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, data) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		u.ID, data)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// LoadTest serves registry misses straight from the tests table, so an
// instance can run a test published by another instance.
func (s *Store) LoadTest(ctx context.Context, code string) (domain.Test, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM tests WHERE code = $1`, code).Scan(&raw)
	if err != nil {
		return domain.Test{}, domain.ErrTestNotFound
	}
	var t domain.Test
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.Test{}, fmt.Errorf("unmarshal test: %w", err)
	}
	return t, nil
}

func (s *Store) loadInto(ctx context.Context, query string, fn func(raw []byte) error) error {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	return rows.Err()
}
