package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/zeus/pkg/core"
)

// FakeBackend is an in-memory implementation of the workbench REST API.
type FakeBackend struct {
	mu sync.Mutex

	queries  map[string]core.Query
	order    []string
	runs     map[string][]core.QueryRun
	statuses map[string][]core.RunStatus
	nextID   int
	calls    map[string]int

	// Columns and Rows are served for SUCCEEDED executions.
	Columns []string
	Rows    [][]string
	// Catalog is served by the catalog endpoint.
	Catalog core.Catalog
	// ExecuteError, when set, makes execution endpoints fail with it.
	ExecuteError string
	// ExportDisposition is sent as Content-Disposition on exports.
	ExportDisposition string
	// DefaultStatuses is the status sequence of new executions.
	DefaultStatuses []core.RunStatus

	server *httptest.Server
}

// NewFakeBackend starts a fake backend that is shut down with the test.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	b := &FakeBackend{
		queries:         make(map[string]core.Query),
		runs:            make(map[string][]core.QueryRun),
		statuses:        make(map[string][]core.RunStatus),
		calls:           make(map[string]int),
		DefaultStatuses: []core.RunStatus{core.RunStatusSucceeded},
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/queries", b.listQueries)
		r.Post("/queries", b.createQuery)
		r.Get("/queries/{id}", b.getQuery)
		r.Put("/queries/{id}", b.updateQuery)
		r.Delete("/queries/{id}", b.deleteQuery)
		r.Get("/queries/{id}/runs", b.listRuns)
		r.Post("/queries/{id}/runs", b.executeRun)
		r.Delete("/query-runs/{id}", b.deleteRun)
		r.Post("/athena/execute", b.executeAdHoc)
		r.Get("/athena/results/{executionId}", b.results)
		r.Get("/athena/export/{executionId}", b.export)
		r.Get("/athena/catalog", b.catalog)
	})

	b.server = httptest.NewServer(r)
	t.Cleanup(b.server.Close)
	return b
}

// URL returns the API root.
func (b *FakeBackend) URL() string {
	return b.server.URL + "/api"
}

// Calls returns how many times a route was hit, keyed "METHOD pattern".
func (b *FakeBackend) Calls(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

// AddQuery seeds a saved query and returns it.
func (b *FakeBackend) AddQuery(name, sql string) core.Query {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addQueryLocked(core.QueryInput{Name: name, SQL: sql})
}

// Query returns a saved query by ID.
func (b *FakeBackend) Query(id string) (core.Query, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queries[id]
	return q, ok
}

// Runs returns the runs recorded for a query.
func (b *FakeBackend) Runs(queryID string) []core.QueryRun {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.QueryRun(nil), b.runs[queryID]...)
}

// SetStatuses scripts the statuses returned by successive result polls of
// an execution. The last status repeats.
func (b *FakeBackend) SetStatuses(executionID string, statuses ...core.RunStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[executionID] = statuses
}

func (b *FakeBackend) count(r *http.Request) {
	pattern := chi.RouteContext(r.Context()).RoutePattern()
	b.calls[r.Method+" "+pattern]++
}

func (b *FakeBackend) addQueryLocked(in core.QueryInput) core.Query {
	b.nextID++
	now := time.Now().UTC()
	q := core.Query{
		ID:          fmt.Sprintf("q%d", b.nextID),
		Name:        in.Name,
		SQL:         in.SQL,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.queries[q.ID] = q
	b.order = append(b.order, q.ID)
	return q
}

func (b *FakeBackend) newExecutionLocked() string {
	b.nextID++
	id := fmt.Sprintf("exec-%d", b.nextID)
	b.statuses[id] = append([]core.RunStatus(nil), b.DefaultStatuses...)
	return id
}

func (b *FakeBackend) listQueries(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count(r)

	out := make([]core.Query, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.queries[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) createQuery(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count(r)

	var in core.QueryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	writeJSON(w, http.StatusCreated, b.addQueryLocked(in))
}

func (b *FakeBackend) getQuery(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count(r)

	q, ok := b.queries[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Query not found"})
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (b *FakeBackend) updateQuery(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count(r)

	id := chi.URLParam(r, "id")
	q, ok := b.queries[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Query not found"})
		return
	}
	var in core.QueryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	q.Name, q.SQL, q.Description = in.Name, in.SQL, in.Description
	q.UpdatedAt = time.Now().UTC()
	b.queries[id] = q
	writeJSON(w, http.StatusOK, q)
}

func (b *FakeBackend) deleteQuery(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count(r)

	id := chi.URLParam(r, "id")
	if _, ok := b.queries[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Query not found"})
		return
	}
	delete(b.queries, id)
	for i, qid := range b.order {
		if qid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Query deleted"})
}

func (b *FakeBackend) listRuns(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count(r)

	runs := b.runs[chi.URLParam(r, "id")]
	out := make([]core.QueryRun, len(runs))
	// Newest first, like the backend.
	for i, run := range runs {
		if seq := b.statuses[run.ExecutionID]; len(seq) > 0 {
			run.Status = seq[0]
		}
		out[len(runs)-1-i] = run
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) executeRun(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count(r)

	if b.ExecuteError != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": b.ExecuteError})
		return
	}
	queryID := chi.URLParam(r, "id")
	var req core.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	execID := b.newExecutionLocked()
	b.nextID++
	b.runs[queryID] = append(b.runs[queryID], core.QueryRun{
		ID:          fmt.Sprintf("run-%d", b.nextID),
		QueryID:     queryID,
		SQL:         req.SQL,
		ExecutionID: execID,
		Status:      core.RunStatusQueued,
		Parameters:  req.Parameters,
		ExecutedAt:  time.Now().UTC(),
	})
	writeJSON(w, http.StatusOK, core.ExecuteResponse{ExecutionID: execID})
}

func (b *FakeBackend) deleteRun(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count(r)

	id := chi.URLParam(r, "id")
	for qid, runs := range b.runs {
		for i, run := range runs {
			if run.ID == id {
				b.runs[qid] = append(runs[:i], runs[i+1:]...)
				writeJSON(w, http.StatusOK, map[string]string{"message": "Query run deleted"})
				return
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Query run not found"})
}

func (b *FakeBackend) executeAdHoc(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count(r)

	if b.ExecuteError != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": b.ExecuteError})
		return
	}
	writeJSON(w, http.StatusOK, core.ExecuteResponse{ExecutionID: b.newExecutionLocked()})
}

func (b *FakeBackend) results(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count(r)

	execID := chi.URLParam(r, "executionId")
	seq, ok := b.statuses[execID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "execution not found"})
		return
	}
	status := seq[0]
	if len(seq) > 1 {
		b.statuses[execID] = seq[1:]
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 50
	}

	res := core.QueryResults{
		Columns: []string{},
		Rows:    [][]string{},
		Page:    page,
		Size:    size,
		Status:  status,
	}
	switch status {
	case core.RunStatusSucceeded:
		res.Columns = b.Columns
		res.Total = int64(len(b.Rows))
		start := min((page-1)*size, len(b.Rows))
		end := min(start+size, len(b.Rows))
		res.Rows = b.Rows[start:end]
		now := time.Now().UTC()
		res.CompletedAt = &now
	case core.RunStatusFailed:
		msg := "SYNTAX_ERROR: line 1:8"
		res.ErrorMessage = &msg
	}
	writeJSON(w, http.StatusOK, res)
}

func (b *FakeBackend) export(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count(r)

	if b.ExportDisposition != "" {
		w.Header().Set("Content-Disposition", b.ExportDisposition)
	}
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintln(w, "id,name")
	for _, row := range b.Rows {
		if len(row) >= 2 {
			_, _ = fmt.Fprintf(w, "%s,%s\n", row[0], row[1])
		}
	}
}

func (b *FakeBackend) catalog(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count(r)
	writeJSON(w, http.StatusOK, b.Catalog)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
