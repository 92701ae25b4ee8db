// Package memory is the in-process schedule store.
package memory

import (
	"context"
	"sort"
	"sync"

	"facegate/internal/schedule"
	"facegate/pkg/platform/sentinel"
)

type Store struct {
	mu      sync.RWMutex
	entries map[string]schedule.Entry
}

func New() *Store {
	return &Store{entries: make(map[string]schedule.Entry)}
}

func (s *Store) Set(_ context.Context, e schedule.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Subject] = e
	return nil
}

func (s *Store) Delete(_ context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[subject]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.entries, subject)
	return nil
}

func (s *Store) All(_ context.Context) ([]schedule.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schedule.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}
