// Package chain implements the tamper-evident ledger backend: each entry
// carries a SHA-256 digest over its own canonical form plus the digest of
// its predecessor, so any retroactive edit breaks every later link.
package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"facegate/internal/ledger"
)

// Store persists chain entries in append order. Implementations only need
// sequential semantics; linking and verification live here.
type Store interface {
	Append(ctx context.Context, e ledger.Entry) error
	Last(ctx context.Context) (ledger.Entry, bool, error)
	ReadAll(ctx context.Context) ([]ledger.Entry, error)
}

// Chain serializes appends so the predecessor digest read and the new
// entry's write form one atomic step.
type Chain struct {
	mu    sync.Mutex
	store Store
}

// New returns a chain over store, writing the genesis entry if the store
// is empty. Genesis is fixed so two fresh chains are byte-identical and a
// replaced prefix is detectable.
func New(ctx context.Context, store Store) (*Chain, error) {
	c := &Chain{store: store}
	_, ok, err := store.Last(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain head: %w", err)
	}
	if !ok {
		genesis := ledger.Entry{
			Index:     0,
			Timestamp: time.Unix(0, 0).UTC(),
			ActorID:   "system",
			Action:    "GENESIS",
			Status:    ledger.StatusSuccess,
		}
		genesis.Digest = digest(genesis)
		if err := store.Append(ctx, genesis); err != nil {
			return nil, fmt.Errorf("write genesis: %w", err)
		}
	}
	return c, nil
}

func (c *Chain) Append(ctx context.Context, e ledger.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	head, ok, err := c.store.Last(ctx)
	if err != nil {
		return fmt.Errorf("read chain head: %w", err)
	}
	if !ok {
		return fmt.Errorf("chain has no genesis")
	}
	e.Index = head.Index + 1
	e.PrevDigest = head.Digest
	e.Digest = digest(e)
	if err := c.store.Append(ctx, e); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

func (c *Chain) ReadAll(ctx context.Context) ([]ledger.Entry, error) {
	return c.store.ReadAll(ctx)
}

// Verify walks the whole chain and returns the index of the first entry
// whose digest or predecessor link does not hold, or -1 when intact.
func (c *Chain) Verify(ctx context.Context) (int64, error) {
	entries, err := c.store.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	var prev string
	for i, e := range entries {
		if e.PrevDigest != prev {
			return int64(i), nil
		}
		if digest(e) != e.Digest {
			return int64(i), nil
		}
		prev = e.Digest
	}
	return -1, nil
}

// digest hashes the canonical JSON of the entry with its own Digest field
// cleared. Timestamps are normalized to UTC RFC3339Nano through the JSON
// encoding.
func digest(e ledger.Entry) string {
	e.Digest = ""
	e.Timestamp = e.Timestamp.UTC()
	b, _ := json.Marshal(e)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
