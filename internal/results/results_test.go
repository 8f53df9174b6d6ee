package results

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/zeus/internal/api"
	"github.com/leapstack-labs/zeus/internal/testutil"
	"github.com/leapstack-labs/zeus/pkg/core"
)

func TestPager(t *testing.T) {
	tests := []struct {
		total int64
		size  int
		pages int
	}{
		{0, 50, 0},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{120, 50, 3},
	}
	for _, tt := range tests {
		p := Pager{Page: 1, Size: tt.size, Total: tt.total}
		assert.Equal(t, tt.pages, p.TotalPages(), "total=%d", tt.total)
	}

	p := NewPager(0)
	assert.Equal(t, DefaultPageSize, p.Size)
	p.Total = 120
	assert.False(t, p.CanPrev())
	assert.False(t, p.Prev())
	assert.True(t, p.Next())
	assert.True(t, p.Next())
	assert.Equal(t, 3, p.Page)
	assert.False(t, p.CanNext())
	assert.False(t, p.Next())
	assert.Equal(t, 3, p.Page)
	assert.True(t, p.Prev())
	assert.Equal(t, 2, p.Page)

	p.Reset()
	assert.Equal(t, 1, p.Page)
	assert.Zero(t, p.Total)
}

func sampleResults() *core.QueryResults {
	return &core.QueryResults{
		Columns: []string{"id", "name"},
		Rows:    [][]string{{"1", "alice"}, {"2", ""}, {"3", "o'brien, jr"}},
		Total:   3,
		Page:    1,
		Size:    50,
		Status:  core.RunStatusSucceeded,
	}
}

func TestRender_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResults(), FormatTable))
	out := buf.String()
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, Null)
	assert.Contains(t, out, "Page 1 of 1 (3 total)")

	buf.Reset()
	require.NoError(t, Render(&buf, &core.QueryResults{}, FormatTable))
	assert.Equal(t, "No results to display\n", buf.String())
}

func TestRender_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResults(), FormatCSV))
	assert.Equal(t, "id,name\n1,alice\n2,\n3,\"o'brien, jr\"\n", buf.String())
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResults(), FormatJSON))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "alice", got[0]["name"])
	assert.Nil(t, got[1]["name"])
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResults(), FormatYAML))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "1", got[0]["id"])
	assert.Nil(t, got[1]["name"])
}

func TestRender_Markdown(t *testing.T) {
	res := sampleResults()
	res.Rows = append(res.Rows, []string{"4"})
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, res, "md"))
	assert.Equal(t, "| id | name |\n| --- | --- |\n| 1 | alice |\n| 2 | null |\n| 3 | o'brien, jr |\n| 4 | null |\n", buf.String())
}

func TestFilenameFromDisposition(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", DefaultExportName},
		{"attachment; filename=query_results.csv", "query_results.csv"},
		{`attachment; filename="run 7.csv"`, "run 7.csv"},
		{`attachment; filename="../../etc/passwd"`, "passwd"},
		{"attachment", DefaultExportName},
		{"garbage;;;", DefaultExportName},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, FilenameFromDisposition(tt.header))
		})
	}
}

func TestExport_FileSink(t *testing.T) {
	b := testutil.NewFakeBackend(t)
	b.Rows = [][]string{{"1", "alice"}}
	b.ExportDisposition = "attachment; filename=report.csv"
	client, err := api.New(b.URL())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "exports")
	path, err := Export(context.Background(), client, "exec-1", FileSink{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,alice\n", string(data))
}

func TestParseS3URL(t *testing.T) {
	bucket, prefix, err := ParseS3URL("s3://results/team/exports/")
	require.NoError(t, err)
	assert.Equal(t, "results", bucket)
	assert.Equal(t, "team/exports", prefix)

	_, _, err = ParseS3URL("https://results/x")
	assert.Error(t, err)
	_, _, err = ParseS3URL("s3:///x")
	assert.Error(t, err)
}

func TestS3Sink_Put(t *testing.T) {
	var (
		mu          sync.Mutex
		gotPath     string
		gotType     string
		gotBody     []byte
		requestSeen bool
	)
	r := chi.NewRouter()
	r.Put("/*", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath, gotType, gotBody, requestSeen = r.URL.Path, r.Header.Get("Content-Type"), body, true
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	sink, err := NewS3Sink(S3Config{
		Bucket:          "results",
		Prefix:          "exports/",
		EndpointURL:     srv.URL,
		ForcePathStyle:  true,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	}, testutil.NewTestLogger(t))
	require.NoError(t, err)

	loc, err := sink.Put(context.Background(), "q.csv", "text/csv", []byte("id\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3://results/exports/q.csv", loc)

	mu.Lock()
	defer mu.Unlock()
	require.True(t, requestSeen)
	assert.Equal(t, "/results/exports/q.csv", gotPath)
	assert.Equal(t, "text/csv", gotType)
	assert.Contains(t, string(gotBody), "id\n1\n")
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	_, err := NewS3Sink(S3Config{}, nil)
	assert.Error(t, err)
}
