package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facegate/internal/schedule"
	"facegate/pkg/platform/sentinel"
)

func TestScheduleCRUD(t *testing.T) {
	ctx := context.Background()
	store := New()

	date := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Set(ctx, schedule.Entry{Subject: "math", Date: date}))
	require.NoError(t, store.Set(ctx, schedule.Entry{Subject: "art", Date: date.Add(24 * time.Hour)}))

	// Upsert replaces.
	moved := date.Add(48 * time.Hour)
	require.NoError(t, store.Set(ctx, schedule.Entry{Subject: "math", Date: moved}))

	entries, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "art", entries[0].Subject)
	assert.Equal(t, "math", entries[1].Subject)
	assert.Equal(t, moved, entries[1].Date)

	require.NoError(t, store.Delete(ctx, "math"))
	assert.ErrorIs(t, store.Delete(ctx, "math"), sentinel.ErrNotFound)
}
