package chain

import (
	"context"
	"sync"

	"facegate/internal/ledger"
)

// MemoryStore keeps the chain in process memory. Suited to tests and
// single-node development runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []ledger.Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) Last(_ context.Context) (ledger.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return ledger.Entry{}, false, nil
	}
	return s.entries[len(s.entries)-1], true, nil
}

func (s *MemoryStore) ReadAll(_ context.Context) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ledger.Entry(nil), s.entries...), nil
}

// Tamper overwrites the entry at index in place. Test hook for exercising
// chain verification; not part of the Store contract.
func (s *MemoryStore) Tamper(index int, e ledger.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[index] = e
}
