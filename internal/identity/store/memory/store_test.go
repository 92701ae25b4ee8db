package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facegate/internal/identity"
	"facegate/pkg/platform/sentinel"
	"facegate/pkg/requestcontext"
)

func record(id string) *identity.Identity {
	return &identity.Identity{
		ID:         id,
		Name:       "Test User",
		Role:       identity.RoleStudent,
		Embeddings: [][]float64{make([]float64, 128)},
	}
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.Create(ctx, record("42")))

	got, err := store.FindByID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", got.ID)

	_, err = store.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestCreateDuplicateConflicts(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.Create(ctx, record("42")))
	assert.ErrorIs(t, store.Create(ctx, record("42")), sentinel.ErrConflict)
}

func TestFindReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.Create(ctx, record("42")))

	got, err := store.FindByID(ctx, "42")
	require.NoError(t, err)
	got.Name = "Mallory"
	got.Embeddings[0][0] = 99

	again, err := store.FindByID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Test User", again.Name)
	assert.Equal(t, 0.0, again.Embeddings[0][0])
}

func TestListSortedByID(t *testing.T) {
	ctx := context.Background()
	store := New()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Create(ctx, record(id)))
	}

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, "c", records[2].ID)
}

func TestExecuteMutates(t *testing.T) {
	now := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	store := New()
	require.NoError(t, store.Create(ctx, record("42")))

	updated, err := store.Execute(ctx, "42", nil, func(r *identity.Identity) {
		r.MFAEnabled = true
	})
	require.NoError(t, err)
	assert.True(t, updated.MFAEnabled)
	assert.Equal(t, now, updated.UpdatedAt)

	got, err := store.FindByID(ctx, "42")
	require.NoError(t, err)
	assert.True(t, got.MFAEnabled)
}

func TestExecuteValidateFailureLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.Create(ctx, record("42")))

	boom := errors.New("rejected")
	_, err := store.Execute(ctx, "42",
		func(*identity.Identity) error { return boom },
		func(r *identity.Identity) { r.Deleted = true },
	)
	assert.ErrorIs(t, err, boom)

	got, err := store.FindByID(ctx, "42")
	require.NoError(t, err)
	assert.False(t, got.Deleted)
}

func TestExecuteUnknownID(t *testing.T) {
	store := New()
	_, err := store.Execute(context.Background(), "missing", nil, func(*identity.Identity) {})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
