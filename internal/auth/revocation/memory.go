// Package revocation tracks revoked session token ids so logout takes
// effect before the token's natural expiry.
package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps revoked jtis in process memory with their expiry, for
// single-node deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: make(map[string]time.Time)}
}

// Revoke marks jti revoked until expiresAt. Entries past their expiry are
// swept opportunistically; the token is unusable by then regardless.
func (s *MemoryStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[jti] = expiresAt
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.revoked[jti]
	return ok && exp.After(time.Now()), nil
}
