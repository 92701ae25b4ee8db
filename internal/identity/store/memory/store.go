// Package memory holds the in-memory identity store. It favors clarity
// over performance and hands out deep copies so readers never observe a
// half-written record.
package memory

import (
	"context"
	"sort"
	"sync"

	"facegate/internal/identity"
	"facegate/pkg/platform/sentinel"
	"facegate/pkg/requestcontext"
)

type Store struct {
	mu      sync.RWMutex
	records map[string]*identity.Identity
}

func New() *Store {
	return &Store{records: make(map[string]*identity.Identity)}
}

// Create inserts a new record. The existence check and the insert happen
// under one lock so concurrent registrations for the same id cannot both
// pass.
func (s *Store) Create(_ context.Context, record *identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; ok {
		return sentinel.ErrConflict
	}
	s.records[record.ID] = snapshot(record)
	return nil
}

func (s *Store) FindByID(_ context.Context, id string) (*identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return snapshot(record), nil
}

func (s *Store) List(_ context.Context) ([]*identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*identity.Identity, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, snapshot(record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Execute runs validate-then-mutate under the write lock.
func (s *Store) Execute(ctx context.Context, id string, validate func(*identity.Identity) error, mutate func(*identity.Identity)) (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(record); err != nil {
			return nil, err
		}
	}
	mutate(record)
	record.UpdatedAt = requestcontext.Now(ctx)
	return snapshot(record), nil
}

func snapshot(record *identity.Identity) *identity.Identity {
	c := *record
	if record.Embeddings != nil {
		c.Embeddings = make([][]float64, len(record.Embeddings))
		for i, e := range record.Embeddings {
			c.Embeddings[i] = append([]float64(nil), e...)
		}
	}
	c.ExamSubjects = append([]string(nil), record.ExamSubjects...)
	c.ExamsVerified = append([]string(nil), record.ExamsVerified...)
	return &c
}
