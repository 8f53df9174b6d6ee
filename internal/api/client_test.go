package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/zeus/internal/testutil"
	"github.com/leapstack-labs/zeus/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, b *testutil.FakeBackend) *Client {
	t.Helper()
	c, err := New(b.URL(), WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	_, err = New("://bad")
	assert.Error(t, err)
}

func TestClient_QueryLifecycle(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	c := newTestClient(t, b)
	ctx := context.Background()

	list, err := c.ListQueries(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	created, err := c.CreateQuery(ctx, core.QueryInput{Name: "daily", SQL: "SELECT 1"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "daily", created.Name)

	got, err := c.GetQuery(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", got.SQL)

	updated, err := c.UpdateQuery(ctx, created.ID, core.QueryInput{Name: "daily v2", SQL: "SELECT 2"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "daily v2", updated.Name)

	require.NoError(t, c.DeleteQuery(ctx, created.ID))

	_, err = c.GetQuery(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Query not found", Message(err, "fallback"))
}

func TestClient_ExecuteDispatch(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	c := newTestClient(t, b)
	ctx := context.Background()
	saved := b.AddQuery("saved", "SELECT {{x}}")

	execID, err := c.Execute(ctx, saved.ID, "SELECT {{x}}", map[string]string{"x": "1"})
	require.NoError(t, err)
	assert.NotEmpty(t, execID)
	assert.Equal(t, 1, b.Calls("POST /api/queries/{id}/runs"))

	runs, err := c.ListRuns(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, execID, runs[0].ExecutionID)
	assert.Equal(t, map[string]string{"x": "1"}, runs[0].Parameters)

	_, err = c.Execute(ctx, "", "SELECT 1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Calls("POST /api/athena/execute"))

	require.NoError(t, c.DeleteRun(ctx, runs[0].ID))
	assert.Empty(t, b.Runs(saved.ID))
}

func TestClient_ExecuteErrorMessage(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	b.ExecuteError = "failed to start query execution: AccessDenied"
	c := newTestClient(t, b)

	_, err := c.Execute(context.Background(), "", "SELECT 1", nil)
	require.Error(t, err)
	assert.Equal(t, "failed to start query execution: AccessDenied", Message(err, "Failed to execute query"))
}

func TestClient_ErrorWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), "", "SELECT 1", nil)
	require.Error(t, err)
	assert.Equal(t, "Failed to execute query", Message(err, "Failed to execute query"))
	assert.Contains(t, err.Error(), "Bad Gateway")
}

func TestClient_ResultsPaging(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	b.Columns = []string{"id", "name"}
	for i := 0; i < 7; i++ {
		b.Rows = append(b.Rows, []string{string(rune('a' + i)), "x"})
	}
	c := newTestClient(t, b)
	ctx := context.Background()

	execID, err := c.Execute(ctx, "", "SELECT 1", nil)
	require.NoError(t, err)

	res, err := c.Results(ctx, execID, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusSucceeded, res.Status)
	assert.Equal(t, int64(7), res.Total)
	assert.Equal(t, 2, res.Page)
	assert.Len(t, res.Rows, 2)
}

func TestClient_ExportAndCatalog(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	b.Rows = [][]string{{"1", "alice"}}
	b.ExportDisposition = `attachment; filename="foo.csv"`
	b.Catalog = core.Catalog{Databases: []core.Database{{Name: "sales", Tables: []core.Table{{Name: "orders"}}}}}
	c := newTestClient(t, b)
	ctx := context.Background()

	file, err := c.Export(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, `attachment; filename="foo.csv"`, file.ContentDisposition)
	assert.Equal(t, "id,name\n1,alice\n", string(file.Data))

	cat, err := c.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, cat.Databases, 1)
	assert.Equal(t, "orders", cat.Databases[0].Tables[0].Name)
}

func TestClient_SendsRequestID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(RequestIDHeader)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = c.ListQueries(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 36)
}

func TestClient_EscapesPathIDsOnce(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.EscapedPath())
		if strings.HasSuffix(r.URL.Path, "/runs") {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/api")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.GetQuery(ctx, "a b")
	require.NoError(t, err)
	_, err = c.ListRuns(ctx, "a/b")
	require.NoError(t, err)
	_, err = c.Results(ctx, "exec%1", 1, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/api/queries/a%20b",
		"/api/queries/a%2Fb/runs",
		"/api/athena/results/exec%251",
	}, got)
}
