package state

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/zeus/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tab struct {
	Name string `json:"name"`
}

func TestKey_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	logger := testutil.NewTestLogger(t)
	key := Key[[]tab]{Name: OpenQueriesKey, Default: []tab{{Name: "default"}}}

	assert.Equal(t, []tab{{Name: "default"}}, key.Load(ctx, store, logger))

	require.NoError(t, key.Store(ctx, store, logger, []tab{{Name: "a"}, {Name: "b"}}))
	assert.Equal(t, []tab{{Name: "a"}, {Name: "b"}}, key.Load(ctx, store, logger))
}

func TestKey_CorruptValueFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	logger, logs := testutil.NewCaptureLogger()
	key := Key[int]{Name: ActiveIndexKey, Default: 0}

	require.NoError(t, store.Set(ctx, ActiveIndexKey, []byte("{not json")))

	assert.Equal(t, 0, key.Load(ctx, store, logger))
	assert.Contains(t, logs.String(), "error decoding state key")
}

func TestKey_ReadErrorFallsBackToDefault(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	logger, logs := testutil.NewCaptureLogger()
	store := NewSQLiteStoreWithDB(db, logger)

	mock.ExpectQuery("SELECT value FROM kv").
		WithArgs(DarkModeKey).
		WillReturnError(errors.New("disk I/O error"))

	key := Key[bool]{Name: DarkModeKey, Default: true}
	assert.True(t, key.Load(context.Background(), store, logger))
	assert.Contains(t, logs.String(), "error reading state key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKey_WriteErrorIsLogged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	logger, logs := testutil.NewCaptureLogger()
	store := NewSQLiteStoreWithDB(db, logger)

	mock.ExpectExec("INSERT INTO kv").
		WillReturnError(errors.New("database is locked"))

	key := Key[string]{Name: RouteKey}
	err = key.Store(context.Background(), store, logger, "/query/1")
	require.Error(t, err)
	assert.Contains(t, logs.String(), "error setting state key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkbenchKeys(t *testing.T) {
	names := []string{OpenQueriesKey, ActiveIndexKey, RouteKey, DarkModeKey}
	seen := make(map[string]bool)
	for _, name := range names {
		assert.True(t, strings.HasPrefix(name, "zeus."), name)
		assert.False(t, seen[name], "duplicate key %s", name)
		seen[name] = true
	}
}
