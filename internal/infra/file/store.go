// Package file persists tests, users and results as flat JSON records in a
// directory: tests.json and users.json hold full snapshots rewritten on every
// upsert, results.jsonl is an append-only log of one JSON document per line.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"quizrank-service/internal/domain"
)

const (
	testsFile   = "tests.json"
	usersFile   = "users.json"
	resultsFile = "results.jsonl"
)

// Store implements app.Store over a directory of JSON files. All writes are
// serialized behind one mutex; none of them sit on the question-advance path.
type Store struct {
	dir string

	mu    sync.Mutex
	tests map[string]domain.Test
	users map[string]domain.User
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{
		dir:   dir,
		tests: make(map[string]domain.Test),
		users: make(map[string]domain.User),
	}, nil
}

func (s *Store) LoadAll(_ context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap domain.Snapshot

	if err := s.readJSON(testsFile, &snap.Tests); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load tests: %w", err)
	}
	if err := s.readJSON(usersFile, &snap.Users); err != nil {
		return domain.Snapshot{}, fmt.Errorf("load users: %w", err)
	}

	results, err := s.readResults()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load results: %w", err)
	}
	snap.Results = results

	for _, t := range snap.Tests {
		s.tests[t.Code] = t
	}
	for _, u := range snap.Users {
		s.users[u.ID] = u
	}
	return snap, nil
}

// AppendResult writes one line to the append-only result log.
func (s *Store) AppendResult(_ context.Context, res domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.dir, resultsFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open result log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return f.Sync()
}

func (s *Store) UpsertTest(_ context.Context, test domain.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tests[test.Code] = test
	tests := make([]domain.Test, 0, len(s.tests))
	for _, t := range s.tests {
		tests = append(tests, t)
	}
	if err := s.writeJSON(testsFile, tests); err != nil {
		return fmt.Errorf("write tests: %w", err)
	}
	return nil
}

func (s *Store) UpsertUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.ID] = u
	users := make([]domain.User, 0, len(s.users))
	for _, existing := range s.users {
		users = append(users, existing)
	}
	if err := s.writeJSON(usersFile, users); err != nil {
		return fmt.Errorf("write users: %w", err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Store) readResults() ([]domain.Result, error) {
	f, err := os.Open(filepath.Join(s.dir, resultsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var results []domain.Result
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var res domain.Result
		if err := json.Unmarshal(line, &res); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, scanner.Err()
}

// writeJSON replaces a snapshot file atomically via a temp-file rename.
func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(s.dir, name))
}
