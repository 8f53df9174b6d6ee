package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/zeus/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenClose(t *testing.T) {
	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Close())
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate())
}

func TestSQLiteStore_SetGetDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte(`"v1"`)))
	require.NoError(t, store.Set(ctx, "k", []byte(`"v2"`)))

	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"v2"`, string(v))

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	ctx := context.Background()

	first := NewSQLiteStore(nil)
	require.NoError(t, first.Open(path))
	require.NoError(t, first.Set(ctx, ActiveIndexKey, []byte("2")))
	require.NoError(t, first.Close())

	second := NewSQLiteStore(nil)
	require.NoError(t, second.Open(path))
	defer func() { _ = second.Close() }()

	v, ok, err := second.Get(ctx, ActiveIndexKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", string(v))
	assert.Equal(t, path, second.Path())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, _, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotOpened)
	assert.ErrorIs(t, store.Set(ctx, "k", nil), ErrNotOpened)
	assert.ErrorIs(t, store.Delete(ctx, "k"), ErrNotOpened)
}
